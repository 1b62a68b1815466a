package traveltime

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/pkg/metrics"
)

// Cached memoises estimates in a CacheService keyed by both endpoints
// rounded to ~1m. Cache failures fall through to the wrapped estimator.
type Cached struct {
	next       ports.TravelTimeEstimator
	cache      ports.CacheService
	ttlSeconds int
}

// NewCached wraps next with a read-through cache.
func NewCached(next ports.TravelTimeEstimator, cache ports.CacheService, ttlSeconds int) *Cached {
	return &Cached{next: next, cache: cache, ttlSeconds: ttlSeconds}
}

func (c *Cached) Estimate(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error) {
	key := cacheKey(origin, destination)

	if data, err := c.cache.Get(ctx, key); err == nil {
		if secs, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			metrics.CacheHits.WithLabelValues("travel").Inc()
			return time.Duration(secs) * time.Second, nil
		}
	}
	metrics.CacheMisses.WithLabelValues("travel").Inc()

	d, err := c.next.Estimate(ctx, origin, destination)
	if err != nil {
		return 0, err
	}

	_ = c.cache.Set(ctx, key, []byte(strconv.FormatInt(int64(d/time.Second), 10)), c.ttlSeconds)
	return d, nil
}

func cacheKey(origin, destination domain.Coordinate) string {
	return fmt.Sprintf("travel:%.5f,%.5f:%.5f,%.5f",
		origin.Latitude, origin.Longitude, destination.Latitude, destination.Longitude)
}

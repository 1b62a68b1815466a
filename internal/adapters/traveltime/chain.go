package traveltime

import (
	"time"

	"github.com/samirrijal/mobilebook/internal/core/ports"
)

// Options selects and tunes the estimator stack.
type Options struct {
	GoogleAPIKey    string
	GoogleQPS       float64
	AverageSpeedKmh float64
	Retries         int
	Cache           ports.CacheService // nil disables caching
	CacheTTLSeconds int
}

// New builds the estimator used by the conflict detector: Distance Matrix
// when an API key is configured, straight-line otherwise. Remote lookups
// are retried; results are cached when a cache is given. The outermost
// layer records metrics and spans.
func New(opts Options) (ports.TravelTimeEstimator, error) {
	if opts.GoogleAPIKey == "" {
		var est ports.TravelTimeEstimator = NewStraightLine(opts.AverageSpeedKmh)
		return NewInstrumented(est, "straight_line"), nil
	}

	g, err := NewGoogle(opts.GoogleAPIKey, opts.GoogleQPS)
	if err != nil {
		return nil, err
	}
	var est ports.TravelTimeEstimator = NewRetrying(g, opts.Retries, 200*time.Millisecond)
	if opts.Cache != nil {
		est = NewCached(est, opts.Cache, opts.CacheTTLSeconds)
	}
	return NewInstrumented(est, "google"), nil
}

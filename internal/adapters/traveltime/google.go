package traveltime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

// ErrNoRoute is returned when the routing API answers but has no route
// between the points. It is not retried.
var ErrNoRoute = errors.New("no route between points")

type distanceMatrixClient interface {
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
}

// Google estimates driving time with the Distance Matrix API. Requests are
// throttled client-side to the configured QPS.
type Google struct {
	client  distanceMatrixClient
	limiter *rate.Limiter
}

// NewGoogle creates a Google estimator.
func NewGoogle(apiKey string, qps float64) (*Google, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return newGoogle(client, qps), nil
}

func newGoogle(client distanceMatrixClient, qps float64) *Google {
	burst := int(qps)
	if burst < 1 {
		burst = 1
	}
	return &Google{client: client, limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

// Estimate returns the driving duration, preferring the traffic-aware
// figure when the API provides one.
func (g *Google) Estimate(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}

	resp, err := g.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:       []string{origin.String()},
		Destinations:  []string{destination.String()},
		Mode:          maps.TravelModeDriving,
		DepartureTime: "now",
	})
	if err != nil {
		return 0, fmt.Errorf("distance matrix: %w", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("distance matrix: empty response")
	}

	el := resp.Rows[0].Elements[0]
	switch el.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return 0, fmt.Errorf("%s → %s: %w (%s)", origin, destination, ErrNoRoute, el.Status)
	default:
		return 0, fmt.Errorf("distance matrix element status %s", el.Status)
	}

	if el.DurationInTraffic > 0 {
		return el.DurationInTraffic, nil
	}
	return el.Duration, nil
}

// Package traveltime holds the ports.TravelTimeEstimator implementations
// and the decorators stacked on top of them.
package traveltime

import (
	"context"
	"time"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/pkg/geospatial"
)

// StraightLine estimates travel as great-circle distance at a constant
// average speed. Used when no routing API is configured.
type StraightLine struct {
	speedMetersPerSecond float64
}

// NewStraightLine creates a StraightLine estimator for an average speed in km/h.
func NewStraightLine(speedKmh float64) *StraightLine {
	return &StraightLine{speedMetersPerSecond: speedKmh * 1000 / 3600}
}

func (s *StraightLine) Estimate(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	meters := geospatial.Distance(origin, destination)
	return time.Duration(meters / s.speedMetersPerSecond * float64(time.Second)).Round(time.Second), nil
}

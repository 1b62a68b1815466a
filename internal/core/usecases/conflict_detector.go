package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
	"github.com/samirrijal/mobilebook/internal/pkg/metrics"
	"github.com/samirrijal/mobilebook/internal/pkg/telemetry"
)

const (
	defaultLookupTimeout = 5 * time.Second
	defaultMaxParallel   = 16
)

// ConflictDetector decides whether a candidate appointment collides with
// existing bookings once travel between them is accounted for.
type ConflictDetector struct {
	travel        ports.TravelTimeEstimator
	lookupTimeout time.Duration
	maxParallel   int
}

// NewConflictDetector creates a ConflictDetector. Non-positive limits fall
// back to a 5s lookup timeout and 16 parallel lookups.
func NewConflictDetector(travel ports.TravelTimeEstimator, lookupTimeout time.Duration, maxParallel int) *ConflictDetector {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &ConflictDetector{travel: travel, lookupTimeout: lookupTimeout, maxParallel: maxParallel}
}

// Check returns the ids of every booking that conflicts with candidate, in
// the order of existing. The candidate window is widened by the travel time
// from the candidate's location to each booking's location; the booking
// window is not widened.
//
// Every travel lookup runs to completion. If any of them fails the whole
// check fails with ErrDependencyUnavailable carrying all failures; a partial
// answer is never returned.
func (d *ConflictDetector) Check(ctx context.Context, candidate domain.AppointmentCandidate, existing []domain.Booking) (domain.ConflictResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ConflictDetector.Check",
		trace.WithAttributes(telemetry.AttrBookings.Int(len(existing))))
	defer span.End()

	start := time.Now()
	defer func() { metrics.ConflictCheckDuration.Observe(time.Since(start).Seconds()) }()

	if err := candidate.Validate(); err != nil {
		metrics.ConflictChecks.WithLabelValues("invalid").Inc()
		return domain.ConflictResult{}, err
	}
	for _, b := range existing {
		if b.Location == nil {
			metrics.ConflictChecks.WithLabelValues("invalid").Inc()
			return domain.ConflictResult{}, fmt.Errorf("booking %s: %w", b.ID, domain.ErrMissingLocation)
		}
	}

	travel, err := d.travelTimes(ctx, *candidate.Location, existing)
	if err != nil {
		metrics.ConflictChecks.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "travel lookup failed")
		logging.FromContext(ctx).WarnContext(ctx, "conflict check failed", "bookings", len(existing), "error", err)
		return domain.ConflictResult{}, err
	}

	var ids []string
	for i, b := range existing {
		if candidate.Window.Shift(travel[i]).Overlaps(b.Window) {
			ids = append(ids, b.ID)
		}
	}

	span.SetAttributes(telemetry.AttrConflicts.Int(len(ids)))
	if len(ids) > 0 {
		metrics.ConflictChecks.WithLabelValues("conflict").Inc()
	} else {
		metrics.ConflictChecks.WithLabelValues("clear").Inc()
	}
	return domain.ConflictResult{BookingIDs: ids}, nil
}

// travelTimes looks up origin → booking travel for every booking, bounded
// by maxParallel, and returns the durations indexed like bookings.
// Negative estimates are treated as zero.
func (d *ConflictDetector) travelTimes(ctx context.Context, origin domain.Coordinate, bookings []domain.Booking) ([]time.Duration, error) {
	out := make([]time.Duration, len(bookings))
	if len(bookings) == 0 {
		return out, nil
	}

	p := pool.New().
		WithMaxGoroutines(d.maxParallel).
		WithErrors().
		WithContext(ctx)

	for i, b := range bookings {
		p.Go(func(ctx context.Context) error {
			lookupCtx, cancel := context.WithTimeout(ctx, d.lookupTimeout)
			defer cancel()

			dur, err := d.travel.Estimate(lookupCtx, origin, *b.Location)
			if err != nil {
				return fmt.Errorf("travel to booking %s: %w", b.ID, err)
			}
			if dur < 0 {
				dur = 0
			}
			out[i] = dur
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDependencyUnavailable, err)
	}
	return out, nil
}

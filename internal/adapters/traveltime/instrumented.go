package traveltime

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/pkg/metrics"
	"github.com/samirrijal/mobilebook/internal/pkg/telemetry"
)

// Instrumented records lookup counts, latency and a span per estimate.
type Instrumented struct {
	next ports.TravelTimeEstimator
	name string
}

// NewInstrumented labels next's metrics with name.
func NewInstrumented(next ports.TravelTimeEstimator, name string) *Instrumented {
	return &Instrumented{next: next, name: name}
}

func (i *Instrumented) Estimate(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "TravelTimeEstimator.Estimate",
		trace.WithAttributes(telemetry.AttrEstimator.String(i.name)))
	defer span.End()

	start := time.Now()
	d, err := i.next.Estimate(ctx, origin, destination)
	metrics.TravelLookupDuration.WithLabelValues(i.name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TravelLookups.WithLabelValues(i.name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "estimate failed")
		return 0, err
	}
	metrics.TravelLookups.WithLabelValues(i.name, "ok").Inc()
	return d, nil
}

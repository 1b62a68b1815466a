package traveltime

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
)

// Retrying retries transient estimator failures with exponential backoff.
// ErrNoRoute and context errors are returned immediately.
type Retrying struct {
	next            ports.TravelTimeEstimator
	retries         uint64
	initialInterval time.Duration
}

// NewRetrying wraps next with up to retries additional attempts.
func NewRetrying(next ports.TravelTimeEstimator, retries int, initialInterval time.Duration) *Retrying {
	if retries < 0 {
		retries = 0
	}
	if initialInterval <= 0 {
		initialInterval = 100 * time.Millisecond
	}
	return &Retrying{next: next, retries: uint64(retries), initialInterval: initialInterval}
}

func (r *Retrying) Estimate(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.retries), ctx)

	var out time.Duration
	op := func() error {
		d, err := r.next.Estimate(ctx, origin, destination)
		if err != nil {
			if errors.Is(err, ErrNoRoute) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = d
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logging.FromContext(ctx).DebugContext(ctx, "travel lookup retry", "wait", wait.String(), "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return 0, err
	}
	return out, nil
}

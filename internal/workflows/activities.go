package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
	"github.com/samirrijal/mobilebook/internal/pkg/metrics"
)

// StoredConflictChecker reports which upcoming bookings fall outside a
// provider's stored area. *usecases.AreaService satisfies it.
type StoredConflictChecker interface {
	CheckStoredConflicts(ctx context.Context, providerID string) (domain.ConflictResult, error)
}

// RevalidationActivities holds the activity implementations for the
// revalidation workflow.
type RevalidationActivities struct {
	Areas     StoredConflictChecker
	Publisher ports.EventPublisher
	Notifier  ports.NotificationService
	Clock     ports.Clock
}

// CheckStoredConflicts returns the ids of uncovered upcoming bookings. An area
// deleted since the event was published has nothing left to revalidate.
func (a *RevalidationActivities) CheckStoredConflicts(ctx context.Context, providerID string) ([]string, error) {
	result, err := a.Areas.CheckStoredConflicts(ctx, providerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, nil
	case domain.IsInputError(err):
		return nil, temporal.NewNonRetryableApplicationError("invalid provider", "InputError", err)
	case err != nil:
		return nil, fmt.Errorf("check stored conflicts: %w", err)
	}
	return result.BookingIDs, nil
}

// PublishBookingsInvalidated announces the uncovered bookings.
func (a *RevalidationActivities) PublishBookingsInvalidated(ctx context.Context, providerID string, bookingIDs []string) error {
	if a.Publisher == nil {
		logging.FromContext(ctx).WarnContext(ctx, "no publisher, invalidation dropped", "provider", providerID, "bookings", len(bookingIDs))
		return nil
	}
	event := &domain.BookingsInvalidated{
		ProviderID: providerID,
		BookingIDs: bookingIDs,
		Time:       a.Clock.Now(),
	}
	if err := a.Publisher.PublishBookingsInvalidated(ctx, event); err != nil {
		return fmt.Errorf("publish bookings invalidated: %w", err)
	}
	metrics.BookingsInvalidated.Add(float64(len(bookingIDs)))
	return nil
}

// NotifyProvider pushes a summary to the provider.
func (a *RevalidationActivities) NotifyProvider(ctx context.Context, providerID string, count int) error {
	if a.Notifier == nil {
		logging.FromContext(ctx).InfoContext(ctx, "push (no notifier)", "provider", providerID, "bookings", count)
		return nil
	}
	title := "Service area updated"
	body := fmt.Sprintf("%d upcoming booking(s) are outside your new service area.", count)
	if count == 1 {
		body = "1 upcoming booking is outside your new service area."
	}
	return a.Notifier.SendPush(ctx, providerID, title, body)
}

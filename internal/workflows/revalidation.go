// Package workflows holds the Temporal workflows run by cmd/revalidator.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RevalidationInput is the input for the area revalidation workflow.
type RevalidationInput struct {
	ProviderID string
	UpdatedAt  time.Time
}

// RevalidationResult lists the bookings the new area no longer covers.
type RevalidationResult struct {
	BookingIDs []string
}

// AreaRevalidationWorkflow checks a provider's upcoming bookings against
// their rewritten service area. Uncovered bookings are announced on
// bookings.invalidated.<provider> and the provider gets a push notification.
// A failed push does not fail the workflow; the invalidation is already out.
func AreaRevalidationWorkflow(ctx workflow.Context, input RevalidationInput) (RevalidationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting area revalidation", "provider", input.ProviderID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	var result RevalidationResult
	err := workflow.ExecuteActivity(ctx, "CheckStoredConflicts", input.ProviderID).Get(ctx, &result.BookingIDs)
	if err != nil {
		return result, err
	}
	if len(result.BookingIDs) == 0 {
		logger.Info("Area still covers every upcoming booking", "provider", input.ProviderID)
		return result, nil
	}

	err = workflow.ExecuteActivity(ctx, "PublishBookingsInvalidated", input.ProviderID, result.BookingIDs).Get(ctx, nil)
	if err != nil {
		return result, err
	}

	err = workflow.ExecuteActivity(ctx, "NotifyProvider", input.ProviderID, len(result.BookingIDs)).Get(ctx, nil)
	if err != nil {
		logger.Warn("push notification failed", "provider", input.ProviderID, "error", err)
	}

	logger.Info("Bookings invalidated", "provider", input.ProviderID, "count", len(result.BookingIDs))
	return result, nil
}

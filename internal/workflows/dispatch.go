package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
)

// WorkflowStarter is the part of client.Client the dispatchers need.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// RevalidationWorkflowID is stable per area write so a redelivered event
// joins the run it already started.
func RevalidationWorkflowID(event *domain.AreaEvent) string {
	return fmt.Sprintf("revalidate-%s-%d", event.ProviderID, event.Time.UnixNano())
}

// AreaEventHandler starts a revalidation workflow for every area write.
// Deletions leave nothing to check.
func AreaEventHandler(starter WorkflowStarter, taskQueue string) func(ctx context.Context, event *domain.AreaEvent) error {
	return func(ctx context.Context, event *domain.AreaEvent) error {
		if event.Type != domain.AreaUpdated {
			return nil
		}
		opts := client.StartWorkflowOptions{
			ID:        RevalidationWorkflowID(event),
			TaskQueue: taskQueue,
		}
		input := RevalidationInput{ProviderID: event.ProviderID, UpdatedAt: event.Time}
		if _, err := starter.ExecuteWorkflow(ctx, opts, AreaRevalidationWorkflow, input); err != nil {
			return fmt.Errorf("start revalidation for %s: %w", event.ProviderID, err)
		}
		logging.FromContext(ctx).InfoContext(ctx, "revalidation started", "provider", event.ProviderID, "workflow_id", opts.ID)
		return nil
	}
}

// Normalizer rewrites an appointment's text-encoded times as instants.
// *usecases.AppointmentService satisfies it.
type Normalizer interface {
	Normalize(ctx context.Context, id string) (*domain.Appointment, error)
}

// AppointmentEventHandler retries normalisation for appointments published
// with text-encoded times. Records that cannot be parsed are logged and
// acknowledged since redelivery cannot fix them.
func AppointmentEventHandler(n Normalizer) func(ctx context.Context, event *domain.AppointmentEvent) error {
	return func(ctx context.Context, event *domain.AppointmentEvent) error {
		if event.Type == domain.AppointmentCancelled {
			return nil
		}
		if event.Appointment != nil && event.Appointment.Canonical() {
			return nil
		}
		_, err := n.Normalize(ctx, event.ID)
		switch {
		case err == nil, errors.Is(err, domain.ErrNotFound):
			return nil
		case errors.Is(err, domain.ErrInconsistentRecord):
			logging.FromContext(ctx).WarnContext(ctx, "appointment cannot be normalised",
				"appointment_id", event.ID, "error", err)
			return nil
		default:
			return err
		}
	}
}

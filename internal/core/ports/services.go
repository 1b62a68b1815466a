package ports

import (
	"context"
	"time"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

// TravelTimeEstimator estimates the driving time between two points.
type TravelTimeEstimator interface {
	Estimate(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error)
}

// Clock supplies the current instant and the scheduling zone.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAppointmentEvent(ctx context.Context, event *domain.AppointmentEvent) error
	PublishAreaEvent(ctx context.Context, event *domain.AreaEvent) error
	PublishBookingsInvalidated(ctx context.Context, event *domain.BookingsInvalidated) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeAreaEvents(ctx context.Context, handler func(ctx context.Context, event *domain.AreaEvent) error) error
	SubscribeAppointmentEvents(ctx context.Context, handler func(ctx context.Context, event *domain.AppointmentEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, userID, title, body string) error
}

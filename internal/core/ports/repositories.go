package ports

import (
	"context"
	"time"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

// AppointmentRepository persists appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	Update(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	Delete(ctx context.Context, id string) error
	// ListByUser returns the user's appointments whose finish instant lies
	// in [from, to], ordered by start, followed by any of the user's records
	// whose finish is still text-encoded.
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Appointment, error)
	// SetWindow rewrites both time fields as canonical instants.
	SetWindow(ctx context.Context, id string, window domain.TimeWindow) error
}

// AreaRepository persists provider service areas.
type AreaRepository interface {
	Upsert(ctx context.Context, area *domain.ServiceArea) error
	GetByProvider(ctx context.Context, providerID string) (*domain.ServiceArea, error)
	Delete(ctx context.Context, providerID string) error
	// FindByGeohashBounds returns every area whose geohash lies in any bound.
	// The result is a superset of the covering areas.
	FindByGeohashBounds(ctx context.Context, bounds []domain.GeohashBound) ([]domain.ServiceArea, error)
}

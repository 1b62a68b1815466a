package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/pkg/geospatial"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
	"github.com/samirrijal/mobilebook/internal/pkg/metrics"
	"github.com/samirrijal/mobilebook/internal/pkg/telemetry"
)

// AreaService manages provider service areas and answers coverage queries.
type AreaService struct {
	areas          ports.AreaRepository
	appointments   ports.AppointmentRepository
	publisher      ports.EventPublisher
	clock          ports.Clock
	maxRadiusMiles float64
	horizon        time.Duration
}

// NewAreaService creates a new AreaService. maxRadiusMiles caps every
// declared radius and sizes the coverage prefilter; horizon bounds how far
// ahead stored bookings are checked against an area.
func NewAreaService(
	areas ports.AreaRepository,
	appointments ports.AppointmentRepository,
	publisher ports.EventPublisher,
	clock ports.Clock,
	maxRadiusMiles float64,
	horizon time.Duration,
) *AreaService {
	return &AreaService{
		areas:          areas,
		appointments:   appointments,
		publisher:      publisher,
		clock:          clock,
		maxRadiusMiles: maxRadiusMiles,
		horizon:        horizon,
	}
}

// SetArea validates and stores a provider's area, recomputing the derived
// fields. Writing the same inputs twice leaves the same record.
func (s *AreaService) SetArea(ctx context.Context, providerID string, center domain.Coordinate, radiusMiles float64) (*domain.ServiceArea, error) {
	if providerID == "" {
		return nil, domain.ErrMissingProvider
	}
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if !(radiusMiles > 0) || radiusMiles > s.maxRadiusMiles {
		return nil, fmt.Errorf("%w: %.2f miles (must be in (0, %.2f])", domain.ErrInvalidRadius, radiusMiles, s.maxRadiusMiles)
	}

	area := domain.NewServiceArea(providerID, center, radiusMiles, geospatial.Geohash(center))
	area.UpdatedAt = s.clock.Now()

	if err := s.areas.Upsert(ctx, &area); err != nil {
		return nil, dependencyErr("upsert area", err)
	}

	stored, err := s.areas.GetByProvider(ctx, providerID)
	if err != nil {
		return nil, dependencyErr("reload area", err)
	}

	s.publishArea(ctx, &domain.AreaEvent{
		Type:       domain.AreaUpdated,
		ProviderID: providerID,
		Area:       stored,
		Time:       area.UpdatedAt,
	})
	return stored, nil
}

// GetArea returns a provider's area or ErrNotFound.
func (s *AreaService) GetArea(ctx context.Context, providerID string) (*domain.ServiceArea, error) {
	area, err := s.areas.GetByProvider(ctx, providerID)
	if err != nil {
		return nil, dependencyErr("get area", err)
	}
	return area, nil
}

// DeleteArea removes a provider's area.
func (s *AreaService) DeleteArea(ctx context.Context, providerID string) error {
	if err := s.areas.Delete(ctx, providerID); err != nil {
		return dependencyErr("delete area", err)
	}
	s.publishArea(ctx, &domain.AreaEvent{
		Type:       domain.AreaDeleted,
		ProviderID: providerID,
		Time:       s.clock.Now(),
	})
	return nil
}

// Covers reports whether point lies within the area, boundary included.
func Covers(area domain.ServiceArea, point domain.Coordinate) bool {
	return geospatial.Distance(point, area.Center) <= area.RadiusMeters
}

// FilterCovering is the exact second stage of a coverage lookup: it keeps
// the areas covering point and returns their provider ids sorted and
// deduplicated.
func FilterCovering(areas []domain.ServiceArea, point domain.Coordinate) []string {
	seen := make(map[string]struct{}, len(areas))
	ids := make([]string, 0, len(areas))
	for _, a := range areas {
		if !Covers(a, point) {
			continue
		}
		if _, dup := seen[a.ProviderID]; dup {
			continue
		}
		seen[a.ProviderID] = struct{}{}
		ids = append(ids, a.ProviderID)
	}
	sort.Strings(ids)
	return ids
}

// FindProvidersCovering returns the ids of every provider whose area covers
// point. A geohash range prefilter sized by the maximum radius fetches a
// superset from storage; FilterCovering then applies the exact distance test.
func (s *AreaService) FindProvidersCovering(ctx context.Context, point domain.Coordinate) ([]string, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}

	bounds := geospatial.QueryBounds(point, domain.MilesToMeters(s.maxRadiusMiles))

	ctx, span := telemetry.Tracer().Start(ctx, "AreaService.FindProvidersCovering",
		trace.WithAttributes(telemetry.AttrBounds.Int(len(bounds))))
	defer span.End()

	candidates, err := s.areas.FindByGeohashBounds(ctx, bounds)
	if err != nil {
		span.RecordError(err)
		return nil, dependencyErr("find areas by geohash", err)
	}
	metrics.CoverageCandidates.Observe(float64(len(candidates)))
	span.SetAttributes(telemetry.AttrCandidates.Int(len(candidates)))

	return FilterCovering(candidates, point), nil
}

// IsCovered reports whether any provider covers point.
func (s *AreaService) IsCovered(ctx context.Context, point domain.Coordinate) (bool, error) {
	ids, err := s.FindProvidersCovering(ctx, point)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// CheckForConflicts returns the bookings the area no longer covers.
// Bookings without a location cannot be placed and are reported too.
func CheckForConflicts(area domain.ServiceArea, bookings []domain.Booking) domain.ConflictResult {
	var ids []string
	for _, b := range bookings {
		if b.Location == nil || !Covers(area, *b.Location) {
			ids = append(ids, b.ID)
		}
	}
	return domain.ConflictResult{BookingIDs: ids}
}

// CheckForConflicts is the method form of the package-level check.
func (s *AreaService) CheckForConflicts(area domain.ServiceArea, bookings []domain.Booking) domain.ConflictResult {
	return CheckForConflicts(area, bookings)
}

// CheckStoredConflicts checks the provider's stored area against their
// upcoming appointments, from now until the configured horizon.
func (s *AreaService) CheckStoredConflicts(ctx context.Context, providerID string) (domain.ConflictResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "AreaService.CheckStoredConflicts",
		trace.WithAttributes(telemetry.AttrProviderID.String(providerID)))
	defer span.End()

	area, err := s.areas.GetByProvider(ctx, providerID)
	if err != nil {
		return domain.ConflictResult{}, dependencyErr("get area", err)
	}

	now := s.clock.Now()
	appts, err := s.appointments.ListByUser(ctx, providerID, now, now.Add(s.horizon))
	if err != nil {
		return domain.ConflictResult{}, dependencyErr("list upcoming appointments", err)
	}

	// Only the place matters here, so records with unnormalised times still count.
	bookings := make([]domain.Booking, 0, len(appts))
	for _, a := range appts {
		bookings = append(bookings, domain.Booking{ID: a.ID, Location: a.Location})
	}

	result := CheckForConflicts(*area, bookings)
	span.SetAttributes(telemetry.AttrConflicts.Int(len(result.BookingIDs)))
	return result, nil
}

func (s *AreaService) publishArea(ctx context.Context, event *domain.AreaEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAreaEvent(ctx, event); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "publish area event failed",
			"provider_id", event.ProviderID, "type", event.Type, "error", err)
	}
}

// dependencyErr wraps a collaborator failure as ErrDependencyUnavailable.
// ErrNotFound passes through untouched.
func dependencyErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrDependencyUnavailable, err)
}

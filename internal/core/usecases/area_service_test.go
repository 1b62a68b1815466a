package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/core/usecases"
	"github.com/samirrijal/mobilebook/internal/pkg/geospatial"
)

const maxRadiusMiles = 25

var centralLondon = domain.Coordinate{Latitude: 51.5, Longitude: -0.1}

func newArea(id string, center domain.Coordinate, miles float64) domain.ServiceArea {
	return domain.NewServiceArea(id, center, miles, geospatial.Geohash(center))
}

func newAreaService(areas *mockAreaRepo, appts *mockAppointmentRepo, pub *mockPublisher) *usecases.AreaService {
	var publisher ports.EventPublisher
	if pub != nil {
		publisher = pub
	}
	return usecases.NewAreaService(areas, appts, publisher, fixedClock(), maxRadiusMiles, 30*24*time.Hour)
}

func TestAreaService_SetArea_Validation(t *testing.T) {
	svc := newAreaService(newAreaRepo(), newAppointmentRepo(), nil)
	tests := []struct {
		name     string
		provider string
		center   domain.Coordinate
		miles    float64
		want     error
	}{
		{"zero radius", "p1", centralLondon, 0, domain.ErrInvalidRadius},
		{"negative radius", "p1", centralLondon, -3, domain.ErrInvalidRadius},
		{"above maximum", "p1", centralLondon, 25.5, domain.ErrInvalidRadius},
		{"nan radius", "p1", centralLondon, math.NaN(), domain.ErrInvalidRadius},
		{"bad center", "p1", domain.Coordinate{Latitude: 95}, 5, domain.ErrInvalidCoordinate},
		{"no provider", "", centralLondon, 5, domain.ErrMissingProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetArea(context.Background(), tt.provider, tt.center, tt.miles)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !domain.IsInputError(err) {
				t.Errorf("expected an input error, got %v", err)
			}
		})
	}
}

func TestAreaService_SetArea_DerivesAndPublishes(t *testing.T) {
	repo := newAreaRepo()
	pub := &mockPublisher{}
	svc := newAreaService(repo, newAppointmentRepo(), pub)

	area, err := svc.SetArea(context.Background(), "p1", centralLondon, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(area.RadiusMeters-8046.72) > 1e-6 {
		t.Errorf("expected 8046.72m, got %f", area.RadiusMeters)
	}
	if area.Geohash != geospatial.Geohash(centralLondon) || len(area.Geohash) != geospatial.Precision {
		t.Errorf("unexpected geohash %q", area.Geohash)
	}
	if len(pub.areas) != 1 || pub.areas[0].Type != domain.AreaUpdated || pub.areas[0].ProviderID != "p1" {
		t.Errorf("expected one area.updated event, got %+v", pub.areas)
	}

	again, err := svc.SetArea(context.Background(), "p1", centralLondon, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *again != *area {
		t.Errorf("expected identical record on rewrite, got %+v vs %+v", again, area)
	}
	if len(repo.areas) != 1 {
		t.Errorf("expected one stored area, got %d", len(repo.areas))
	}
}

func TestAreaService_SetArea_AcceptsMaximum(t *testing.T) {
	svc := newAreaService(newAreaRepo(), newAppointmentRepo(), nil)
	if _, err := svc.SetArea(context.Background(), "p1", centralLondon, maxRadiusMiles); err != nil {
		t.Fatalf("expected the maximum radius to be accepted, got %v", err)
	}
}

func TestFilterCovering_FiveMileBoundary(t *testing.T) {
	area := newArea("p1", centralLondon, 5)
	inside := geospatial.Destination(centralLondon, 60, 8000)
	outside := geospatial.Destination(centralLondon, 60, 8100)

	if got := usecases.FilterCovering([]domain.ServiceArea{area}, inside); len(got) != 1 || got[0] != "p1" {
		t.Errorf("expected [p1] at 8000m, got %v", got)
	}
	if got := usecases.FilterCovering([]domain.ServiceArea{area}, outside); len(got) != 0 {
		t.Errorf("expected no providers at 8100m, got %v", got)
	}
	if !usecases.Covers(area, area.Center) {
		t.Error("expected the center to be covered")
	}
}

func TestFilterCovering_SortsAndDedupes(t *testing.T) {
	areas := []domain.ServiceArea{
		newArea("zeta", centralLondon, 2),
		newArea("alpha", centralLondon, 2),
		newArea("zeta", centralLondon, 3),
		newArea("far", domain.Coordinate{Latitude: 53.48, Longitude: -2.24}, 10),
	}
	got := usecases.FilterCovering(areas, centralLondon)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("expected [alpha zeta], got %v", got)
	}
}

func TestAreaService_FindProvidersCovering(t *testing.T) {
	near := geospatial.Destination(centralLondon, 90, 20_000)
	repo := newAreaRepo(
		newArea("p-big", near, 20),
		newArea("p-small", near, 1),
		newArea("p-here", centralLondon, 0.5),
	)
	svc := newAreaService(repo, newAppointmentRepo(), nil)

	got, err := svc.FindProvidersCovering(context.Background(), centralLondon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "p-big" || got[1] != "p-here" {
		t.Errorf("expected [p-big p-here], got %v", got)
	}

	covered, err := svc.IsCovered(context.Background(), domain.Coordinate{Latitude: 40.7, Longitude: -74})
	if err != nil || covered {
		t.Errorf("expected New York uncovered, got %v (%v)", covered, err)
	}
}

func TestAreaService_FindProvidersCovering_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	var areas []domain.ServiceArea
	for i := 0; i < 300; i++ {
		center := geospatial.Destination(centralLondon, rng.Float64()*360, rng.Float64()*80_000)
		areas = append(areas, newArea(fmt.Sprintf("p%03d", i), center, 0.5+rng.Float64()*(maxRadiusMiles-0.5)))
	}
	svc := newAreaService(newAreaRepo(areas...), newAppointmentRepo(), nil)

	for i := 0; i < 200; i++ {
		point := geospatial.Destination(centralLondon, rng.Float64()*360, rng.Float64()*60_000)

		var want []string
		for _, a := range areas {
			if geospatial.Distance(point, a.Center) <= a.RadiusMeters {
				want = append(want, a.ProviderID)
			}
		}
		sort.Strings(want)

		got, err := svc.FindProvidersCovering(context.Background(), point)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("point %v: expected %d providers, got %d", point, len(want), len(got))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("point %v: expected %v, got %v", point, want, got)
			}
		}
	}
}

func TestAreaService_FindProvidersCovering_Errors(t *testing.T) {
	repo := newAreaRepo()
	repo.findErr = errors.New("connection reset")
	svc := newAreaService(repo, newAppointmentRepo(), nil)

	if _, err := svc.FindProvidersCovering(context.Background(), centralLondon); !errors.Is(err, domain.ErrDependencyUnavailable) {
		t.Errorf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, err := svc.FindProvidersCovering(context.Background(), domain.Coordinate{Longitude: 200}); !errors.Is(err, domain.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestCheckForConflicts(t *testing.T) {
	area := newArea("p1", centralLondon, 5)
	inside := geospatial.Destination(centralLondon, 0, 1000)
	outside := geospatial.Destination(centralLondon, 0, 9000)

	bookings := []domain.Booking{
		{ID: "in", Location: &inside},
		{ID: "out", Location: &outside},
		{ID: "nowhere"},
	}
	got := usecases.CheckForConflicts(area, bookings)
	if len(got.BookingIDs) != 2 || got.BookingIDs[0] != "out" || got.BookingIDs[1] != "nowhere" {
		t.Errorf("expected [out nowhere], got %v", got.BookingIDs)
	}

	if usecases.CheckForConflicts(area, bookings[:1]).HasConflict() {
		t.Error("expected no conflicts for a covered booking")
	}
}

func TestAreaService_CheckStoredConflicts(t *testing.T) {
	far := geospatial.Destination(centralLondon, 180, 12_000)
	near := geospatial.Destination(centralLondon, 180, 2_000)
	appts := newAppointmentRepo(
		domain.Appointment{ID: "a-near", UserID: "p1", Location: &near, Start: domain.At(at(14, 0)), Finish: domain.At(at(15, 0))},
		domain.Appointment{ID: "a-far", UserID: "p1", Location: &far, Start: domain.At(at(16, 0)), Finish: domain.At(at(17, 0))},
		domain.Appointment{ID: "a-past", UserID: "p1", Location: &far, Start: domain.At(at(7, 0)), Finish: domain.At(at(8, 0))},
		domain.Appointment{ID: "a-other", UserID: "p2", Location: &far, Start: domain.At(at(14, 0)), Finish: domain.At(at(15, 0))},
	)
	svc := newAreaService(newAreaRepo(newArea("p1", centralLondon, 5)), appts, nil)

	got, err := svc.CheckStoredConflicts(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.BookingIDs) != 1 || got.BookingIDs[0] != "a-far" {
		t.Errorf("expected [a-far], got %v", got.BookingIDs)
	}

	if _, err := svc.CheckStoredConflicts(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAreaService_DeleteArea(t *testing.T) {
	repo := newAreaRepo(newArea("p1", centralLondon, 5))
	pub := &mockPublisher{}
	svc := newAreaService(repo, newAppointmentRepo(), pub)

	if err := svc.DeleteArea(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetArea(context.Background(), "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if len(pub.areas) != 1 || pub.areas[0].Type != domain.AreaDeleted {
		t.Errorf("expected area.deleted event, got %+v", pub.areas)
	}
}

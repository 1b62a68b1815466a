package usecases_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/pkg/clock"
)

var london, _ = time.LoadLocation("Europe/London")

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 14, hour, minute, 0, 0, london)
}

func window(start, finish time.Time) domain.TimeWindow {
	w, err := domain.NewTimeWindow(start, finish)
	if err != nil {
		panic(err)
	}
	return w
}

func coord(lat, lon float64) *domain.Coordinate {
	return &domain.Coordinate{Latitude: lat, Longitude: lon}
}

// fixedClock is 09:30 London on 14 May 2024.
func fixedClock() clock.Fixed {
	return clock.Fixed{At: at(9, 30), Loc: london}
}

// --- Mock TravelTimeEstimator ---

type mockTravel struct {
	estimateFn func(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error)

	mu    sync.Mutex
	calls int
}

func (m *mockTravel) Estimate(ctx context.Context, origin, destination domain.Coordinate) (time.Duration, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.estimateFn != nil {
		return m.estimateFn(ctx, origin, destination)
	}
	return 0, nil
}

func (m *mockTravel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func constantTravel(d time.Duration) *mockTravel {
	return &mockTravel{estimateFn: func(ctx context.Context, o, d2 domain.Coordinate) (time.Duration, error) {
		return d, nil
	}}
}

// --- Mock AppointmentRepository (in memory) ---

type mockAppointmentRepo struct {
	mu          sync.Mutex
	byID        map[string]domain.Appointment
	order       []string
	setWindows  int
	listErr     error
	createErr   error
	lastFrom    time.Time
	lastTo      time.Time
	listFilters int
}

func newAppointmentRepo(appts ...domain.Appointment) *mockAppointmentRepo {
	r := &mockAppointmentRepo{byID: map[string]domain.Appointment{}}
	for _, a := range appts {
		r.byID[a.ID] = a
		r.order = append(r.order, a.ID)
	}
	return r
}

func (r *mockAppointmentRepo) Create(ctx context.Context, appt *domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[appt.ID] = *appt
	r.order = append(r.order, appt.ID)
	return nil
}

func (r *mockAppointmentRepo) Update(ctx context.Context, appt *domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[appt.ID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[appt.ID] = *appt
	return nil
}

func (r *mockAppointmentRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *mockAppointmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// ListByUser returns matches in insertion order so callers' sorting is observable.
func (r *mockAppointmentRepo) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listFilters++
	r.lastFrom, r.lastTo = from, to
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Appointment
	for _, id := range r.order {
		a, ok := r.byID[id]
		if !ok || a.UserID != userID {
			continue
		}
		if a.Finish.Canonical() && (a.Finish.Time.Before(from) || a.Finish.Time.After(to)) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *mockAppointmentRepo) SetWindow(ctx context.Context, id string, w domain.TimeWindow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Start, a.Finish = domain.At(w.Start), domain.At(w.Finish)
	r.byID[id] = a
	r.setWindows++
	return nil
}

// --- Mock AreaRepository (in memory) ---

type mockAreaRepo struct {
	mu      sync.Mutex
	areas   map[string]domain.ServiceArea
	findErr error
	upserts int
}

func newAreaRepo(areas ...domain.ServiceArea) *mockAreaRepo {
	r := &mockAreaRepo{areas: map[string]domain.ServiceArea{}}
	for _, a := range areas {
		r.areas[a.ProviderID] = a
	}
	return r
}

func (r *mockAreaRepo) Upsert(ctx context.Context, area *domain.ServiceArea) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.areas[area.ProviderID] = *area
	r.upserts++
	return nil
}

func (r *mockAreaRepo) GetByProvider(ctx context.Context, providerID string) (*domain.ServiceArea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.areas[providerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (r *mockAreaRepo) Delete(ctx context.Context, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.areas, providerID)
	return nil
}

func (r *mockAreaRepo) FindByGeohashBounds(ctx context.Context, bounds []domain.GeohashBound) ([]domain.ServiceArea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []domain.ServiceArea
	for _, a := range r.areas {
		for _, b := range bounds {
			if b.Contains(a.Geohash) {
				out = append(out, a)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu           sync.Mutex
	appointments []domain.AppointmentEvent
	areas        []domain.AreaEvent
	invalidated  []domain.BookingsInvalidated
}

func (p *mockPublisher) PublishAppointmentEvent(ctx context.Context, e *domain.AppointmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appointments = append(p.appointments, *e)
	return nil
}

func (p *mockPublisher) PublishAreaEvent(ctx context.Context, e *domain.AreaEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.areas = append(p.areas, *e)
	return nil
}

func (p *mockPublisher) PublishBookingsInvalidated(ctx context.Context, e *domain.BookingsInvalidated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidated = append(p.invalidated, *e)
	return nil
}

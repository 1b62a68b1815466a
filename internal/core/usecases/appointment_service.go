package usecases

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/mobilebook/internal/core/domain"
	"github.com/samirrijal/mobilebook/internal/core/ports"
	"github.com/samirrijal/mobilebook/internal/pkg/logging"
	"github.com/samirrijal/mobilebook/internal/pkg/telemetry"
)

const dateLayout = "2006-01-02"

// AppointmentService handles appointment persistence and scheduling queries.
type AppointmentService struct {
	appointments ports.AppointmentRepository
	detector     *ConflictDetector
	publisher    ports.EventPublisher
	clock        ports.Clock
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(
	appointments ports.AppointmentRepository,
	detector *ConflictDetector,
	publisher ports.EventPublisher,
	clock ports.Clock,
) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		detector:     detector,
		publisher:    publisher,
		clock:        clock,
	}
}

// GetAppointments lists a user's appointments finishing between two
// YYYY-MM-DD dates in the scheduling zone. Without a start date the range
// begins now; without an end date it ends with the start's day.
func (s *AppointmentService) GetAppointments(ctx context.Context, userID, startDate, endDate string) ([]domain.Appointment, error) {
	loc := s.clock.Location()

	from := s.clock.Now()
	if startDate != "" {
		day, err := parseDate(startDate, loc)
		if err != nil {
			return nil, err
		}
		from = day
	}

	_, to := domain.DayBounds(from, loc)
	if endDate != "" {
		day, err := parseDate(endDate, loc)
		if err != nil {
			return nil, err
		}
		_, to = domain.DayBounds(day, loc)
	}

	if to.Before(from) {
		return nil, fmt.Errorf("%w: end date %s before start", domain.ErrInvalidRange, endDate)
	}

	appts, err := s.listFinishing(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	s.sortByStart(appts)
	return appts, nil
}

// CreateAppointment stores a new appointment for userID and normalises its
// time fields.
func (s *AppointmentService) CreateAppointment(ctx context.Context, userID string, input domain.AppointmentInput) (*domain.Appointment, error) {
	if userID == "" {
		return nil, domain.ErrMissingProvider
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	appt := &domain.Appointment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Location:  input.Location,
		Start:     input.Start,
		Finish:    input.Finish,
		Notes:     input.Notes,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, dependencyErr("create appointment", err)
	}

	normalized, err := s.Normalize(ctx, appt.ID)
	if err != nil {
		return nil, err
	}

	s.publishAppointment(ctx, domain.AppointmentCreated, normalized)
	return normalized, nil
}

// UpdateAppointment applies the non-empty fields of input and normalises the
// result.
func (s *AppointmentService) UpdateAppointment(ctx context.Context, id string, input domain.AppointmentInput) (*domain.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, dependencyErr("get appointment", err)
	}

	if input.Location != nil {
		appt.Location = input.Location
	}
	if !input.Start.IsZero() {
		appt.Start = input.Start
	}
	if !input.Finish.IsZero() {
		appt.Finish = input.Finish
	}
	if input.Notes != "" {
		appt.Notes = input.Notes
	}
	if input.Metadata != nil {
		appt.Metadata = input.Metadata
	}

	merged := domain.AppointmentInput{Location: appt.Location, Start: appt.Start, Finish: appt.Finish}
	if err := s.validateInput(merged); err != nil {
		return nil, err
	}

	appt.UpdatedAt = s.clock.Now()
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, dependencyErr("update appointment", err)
	}

	normalized, err := s.Normalize(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishAppointment(ctx, domain.AppointmentUpdated, normalized)
	return normalized, nil
}

// Normalize re-reads the appointment and rewrites text-encoded time fields
// as canonical instants. Canonical records are returned without a write, so
// repeated calls are no-ops.
func (s *AppointmentService) Normalize(ctx context.Context, id string) (*domain.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, dependencyErr("get appointment", err)
	}
	if appt.Canonical() {
		return appt, nil
	}

	loc := s.clock.Location()
	start, err := appt.Start.Resolve(loc)
	if err != nil {
		return nil, fmt.Errorf("appointment %s start: %w", id, err)
	}
	finish, err := appt.Finish.Resolve(loc)
	if err != nil {
		return nil, fmt.Errorf("appointment %s finish: %w", id, err)
	}
	window, err := domain.NewTimeWindow(start, finish)
	if err != nil {
		return nil, fmt.Errorf("appointment %s: %w", id, err)
	}

	if err := s.appointments.SetWindow(ctx, id, window); err != nil {
		return nil, dependencyErr("normalise appointment", err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "appointment normalised", "appointment_id", id)

	appt.Start = domain.At(window.Start)
	appt.Finish = domain.At(window.Finish)
	return appt, nil
}

// CancelAppointment deletes an appointment.
func (s *AppointmentService) CancelAppointment(ctx context.Context, id string) error {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return dependencyErr("get appointment", err)
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return dependencyErr("delete appointment", err)
	}
	s.publishAppointment(ctx, domain.AppointmentCancelled, appt)
	return nil
}

// CheckConflicts checks candidate against the given bookings.
func (s *AppointmentService) CheckConflicts(ctx context.Context, candidate domain.AppointmentCandidate, existing []domain.Booking) (domain.ConflictResult, error) {
	return s.detector.Check(ctx, candidate, existing)
}

// CheckConflictsForUser checks candidate against the user's stored
// appointments around the candidate's day. The snapshot is read fresh on
// every call.
func (s *AppointmentService) CheckConflictsForUser(ctx context.Context, userID string, candidate domain.AppointmentCandidate) (domain.ConflictResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "AppointmentService.CheckConflictsForUser",
		trace.WithAttributes(telemetry.AttrUserID.String(userID)))
	defer span.End()

	if err := candidate.Validate(); err != nil {
		return domain.ConflictResult{}, err
	}

	bookings, err := s.bookingsAround(ctx, userID, candidate.Window)
	if err != nil {
		return domain.ConflictResult{}, err
	}
	return s.detector.Check(ctx, candidate, bookings)
}

// BufferedRangesForDate returns each of the user's appointments on date
// widened by the travel time from location to the appointment.
func (s *AppointmentService) BufferedRangesForDate(ctx context.Context, userID, date string, location domain.Coordinate) ([]domain.BufferedRange, error) {
	if err := location.Validate(); err != nil {
		return nil, err
	}

	loc := s.clock.Location()
	day := s.clock.Now()
	if date != "" {
		parsed, err := parseDate(date, loc)
		if err != nil {
			return nil, err
		}
		day = parsed
	}
	from, to := domain.DayBounds(day, loc)

	appts, err := s.listFinishing(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	s.sortByStart(appts)

	bookings, err := s.toBookings(ctx, appts)
	if err != nil {
		return nil, err
	}

	travel, err := s.detector.travelTimes(ctx, location, bookings)
	if err != nil {
		return nil, err
	}

	ranges := make([]domain.BufferedRange, len(bookings))
	for i, b := range bookings {
		ranges[i] = domain.BufferedRange{
			AppointmentID: b.ID,
			Window:        b.Window.Shift(travel[i]).In(loc),
			Travel:        travel[i],
		}
	}
	return ranges, nil
}

// bookingsAround loads the user's bookings finishing between the start of
// the day before the window and the end of the day after it, so bookings
// running across midnight are included.
func (s *AppointmentService) bookingsAround(ctx context.Context, userID string, window domain.TimeWindow) ([]domain.Booking, error) {
	loc := s.clock.Location()
	from, _ := domain.DayBounds(window.Start.AddDate(0, 0, -1), loc)
	_, to := domain.DayBounds(window.Finish.AddDate(0, 0, 1), loc)

	appts, err := s.listFinishing(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return s.toBookings(ctx, appts)
}

// listFinishing loads the user's appointments finishing in [from, to].
// Storage filters canonical records; text-encoded ones come back
// unfiltered and are kept when their finish resolves into the range or
// cannot be resolved at all.
func (s *AppointmentService) listFinishing(ctx context.Context, userID string, from, to time.Time) ([]domain.Appointment, error) {
	appts, err := s.appointments.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, dependencyErr("list appointments", err)
	}

	loc := s.clock.Location()
	bounds := domain.TimeWindow{Start: from, Finish: to}
	kept := appts[:0]
	for _, a := range appts {
		if !a.Finish.Canonical() {
			finish, err := a.Finish.Resolve(loc)
			if err == nil && !bounds.Contains(finish) {
				continue
			}
		}
		kept = append(kept, a)
	}
	return kept, nil
}

// toBookings converts appointments to conflict snapshots, normalising any
// record still holding text-encoded times.
func (s *AppointmentService) toBookings(ctx context.Context, appts []domain.Appointment) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0, len(appts))
	for i := range appts {
		appt := &appts[i]
		b, err := appt.Booking()
		if err != nil && !appt.Canonical() {
			if appt, err = s.Normalize(ctx, appt.ID); err != nil {
				return nil, err
			}
			b, err = appt.Booking()
		}
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// validateInput checks that the location is present and on the globe and
// that the time fields resolve to a valid window.
func (s *AppointmentService) validateInput(input domain.AppointmentInput) error {
	if input.Location == nil {
		return domain.ErrMissingLocation
	}
	if err := input.Location.Validate(); err != nil {
		return err
	}
	loc := s.clock.Location()
	start, err := input.Start.Resolve(loc)
	if err != nil {
		return fmt.Errorf("%w: start_datetime: %v", domain.ErrInvalidDate, err)
	}
	finish, err := input.Finish.Resolve(loc)
	if err != nil {
		return fmt.Errorf("%w: finish_datetime: %v", domain.ErrInvalidDate, err)
	}
	_, err = domain.NewTimeWindow(start, finish)
	return err
}

// sortByStart orders by start instant, then id. Records whose start cannot
// be resolved sort last.
func (s *AppointmentService) sortByStart(appts []domain.Appointment) {
	loc := s.clock.Location()
	keys := make(map[string]time.Time, len(appts))
	for _, a := range appts {
		if t, err := a.Start.Resolve(loc); err == nil {
			keys[a.ID] = t
		}
	}
	sort.SliceStable(appts, func(i, j int) bool {
		ti, iok := keys[appts[i].ID]
		tj, jok := keys[appts[j].ID]
		switch {
		case iok != jok:
			return iok
		case iok && !ti.Equal(tj):
			return ti.Before(tj)
		default:
			return appts[i].ID < appts[j].ID
		}
	})
}

func (s *AppointmentService) publishAppointment(ctx context.Context, eventType string, appt *domain.Appointment) {
	if s.publisher == nil {
		return
	}
	event := &domain.AppointmentEvent{
		Type:        eventType,
		Appointment: appt,
		ID:          appt.ID,
		UserID:      appt.UserID,
		Time:        s.clock.Now(),
	}
	if err := s.publisher.PublishAppointmentEvent(ctx, event); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "publish appointment event failed",
			"appointment_id", appt.ID, "type", eventType, "error", err)
	}
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", domain.ErrInvalidDate, value)
	}
	return day, nil
}

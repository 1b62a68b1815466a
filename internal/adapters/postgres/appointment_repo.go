package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

const appointmentColumns = `
	id, user_id, latitude, longitude,
	start_at, start_text, finish_at, finish_text,
	notes, metadata, created_at, updated_at`

// AppointmentRepo implements ports.AppointmentRepository with pgx.
type AppointmentRepo struct {
	db *DB
}

// NewAppointmentRepo creates a new AppointmentRepo.
func NewAppointmentRepo(db *DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

// Create inserts an appointment. Text-encoded time fields are stored as
// given; the service normalises them afterwards.
func (r *AppointmentRepo) Create(ctx context.Context, a *domain.Appointment) error {
	lat, lon := locationArgs(a.Location)
	startAt, startText := timestampArgs(a.Start)
	finishAt, finishText := timestampArgs(a.Finish)

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO appointments (id, user_id, latitude, longitude,
		                          start_at, start_text, finish_at, finish_text,
		                          notes, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, a.ID, a.UserID, lat, lon, startAt, startText, finishAt, finishText,
		a.Notes, metadataArg(a.Metadata), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment %s: %w", a.ID, err)
	}
	return nil
}

// Update overwrites the writable fields of an appointment.
func (r *AppointmentRepo) Update(ctx context.Context, a *domain.Appointment) error {
	lat, lon := locationArgs(a.Location)
	startAt, startText := timestampArgs(a.Start)
	finishAt, finishText := timestampArgs(a.Finish)

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE appointments
		SET latitude = $2, longitude = $3,
		    start_at = $4, start_text = $5, finish_at = $6, finish_text = $7,
		    notes = $8, metadata = $9, updated_at = $10
		WHERE id = $1
	`, a.ID, lat, lon, startAt, startText, finishAt, finishText,
		a.Notes, metadataArg(a.Metadata), a.UpdatedAt)
	if err != nil {
		return notFound(err, "update appointment "+a.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns an appointment by id.
func (r *AppointmentRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if err != nil {
		return nil, notFound(err, "appointment "+id)
	}
	return a, nil
}

// Delete removes an appointment.
func (r *AppointmentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return notFound(err, "delete appointment "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListByUser returns appointments finishing in [from, to] ordered by start,
// followed by the user's records that still carry a text-encoded finish.
func (r *AppointmentRepo) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE user_id = $1
		  AND ((finish_at BETWEEN $2 AND $3) OR finish_at IS NULL)
		ORDER BY start_at NULLS LAST, id
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []domain.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// SetWindow stores both time fields as canonical instants and clears the
// text forms.
func (r *AppointmentRepo) SetWindow(ctx context.Context, id string, w domain.TimeWindow) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE appointments
		SET start_at = $2, start_text = NULL, finish_at = $3, finish_text = NULL, updated_at = now()
		WHERE id = $1
	`, id, w.Start, w.Finish)
	if err != nil {
		return notFound(err, "set window "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var (
		a                     domain.Appointment
		lat, lon              *float64
		startAt, finishAt     *time.Time
		startText, finishText *string
	)
	if err := row.Scan(
		&a.ID, &a.UserID, &lat, &lon,
		&startAt, &startText, &finishAt, &finishText,
		&a.Notes, &a.Metadata, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		a.Location = &domain.Coordinate{Latitude: *lat, Longitude: *lon}
	}
	a.Start = timestampFrom(startAt, startText)
	a.Finish = timestampFrom(finishAt, finishText)
	if len(a.Metadata) == 0 {
		a.Metadata = nil
	}
	return &a, nil
}

func locationArgs(c *domain.Coordinate) (*float64, *float64) {
	if c == nil {
		return nil, nil
	}
	return &c.Latitude, &c.Longitude
}

// timestampArgs splits a Timestamp into its (instant, text) column pair;
// exactly one of them is non-nil for a set timestamp.
func timestampArgs(t domain.Timestamp) (*time.Time, *string) {
	switch {
	case t.Text != "":
		return nil, &t.Text
	case t.Time.IsZero():
		return nil, nil
	default:
		return &t.Time, nil
	}
}

func timestampFrom(at *time.Time, text *string) domain.Timestamp {
	if text != nil && *text != "" {
		return domain.Timestamp{Text: *text}
	}
	if at != nil {
		return domain.At(*at)
	}
	return domain.Timestamp{}
}

func metadataArg(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

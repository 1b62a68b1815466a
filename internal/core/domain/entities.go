package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MetersPerMile converts declared service radii.
const MetersPerMile = 1609.344

// MilesToMeters converts a radius in miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * MetersPerMile
}

// Booking is a committed appointment as seen by the conflict detector.
// It is a read-only snapshot owned by persistence.
type Booking struct {
	ID       string      `json:"id"`
	Location *Coordinate `json:"location"`
	Window   TimeWindow  `json:"window"`
}

// AppointmentCandidate is a proposed, not yet committed booking.
type AppointmentCandidate struct {
	Location *Coordinate `json:"location"`
	Window   TimeWindow  `json:"window"`
}

// Validate checks the location is present and well formed and the window is valid.
func (c AppointmentCandidate) Validate() error {
	if c.Location == nil {
		return fmt.Errorf("candidate: %w", ErrMissingLocation)
	}
	if err := c.Location.Validate(); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	if err := c.Window.Validate(); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	return nil
}

// ServiceArea is the circular region a provider declares they travel to.
// RadiusMeters and Geohash are derived; build with NewServiceArea.
type ServiceArea struct {
	ProviderID   string     `json:"provider_id"`
	Center       Coordinate `json:"center"`
	RadiusMiles  float64    `json:"radius_miles"`
	RadiusMeters float64    `json:"radius_meters"`
	Geohash      string     `json:"geohash"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewServiceArea computes the derived fields from the declared inputs.
// hash is the geohash of center, supplied by the caller's distance engine.
func NewServiceArea(providerID string, center Coordinate, radiusMiles float64, hash string) ServiceArea {
	return ServiceArea{
		ProviderID:   providerID,
		Center:       center,
		RadiusMiles:  radiusMiles,
		RadiusMeters: MilesToMeters(radiusMiles),
		Geohash:      hash,
	}
}

// Appointment is the persisted form of a booking.
type Appointment struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Location  *Coordinate    `json:"location,omitempty"`
	Start     Timestamp      `json:"start_datetime"`
	Finish    Timestamp      `json:"finish_datetime"`
	Notes     string         `json:"notes,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Canonical reports whether both time fields are canonical instants.
func (a *Appointment) Canonical() bool {
	return a.Start.Canonical() && a.Finish.Canonical()
}

// Window returns the appointment's time window. It fails with
// ErrInconsistentRecord if the time fields have not been normalised.
func (a *Appointment) Window() (TimeWindow, error) {
	if !a.Canonical() {
		return TimeWindow{}, fmt.Errorf("appointment %s: %w", a.ID, ErrInconsistentRecord)
	}
	return NewTimeWindow(a.Start.Time, a.Finish.Time)
}

// Booking converts the appointment into a conflict-check snapshot. A
// stored appointment without a location is an inconsistent record.
func (a *Appointment) Booking() (Booking, error) {
	if a.Location == nil {
		return Booking{}, fmt.Errorf("appointment %s: no location: %w", a.ID, ErrInconsistentRecord)
	}
	w, err := a.Window()
	if err != nil {
		return Booking{}, err
	}
	loc := *a.Location
	return Booking{ID: a.ID, Location: &loc, Window: w}, nil
}

// AppointmentInput is the writable subset of an appointment.
type AppointmentInput struct {
	Location *Coordinate    `json:"location"`
	Start    Timestamp      `json:"start_datetime"`
	Finish   Timestamp      `json:"finish_datetime"`
	Notes    string         `json:"notes,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ConflictResult lists conflicting booking ids. An empty result means no
// conflict and encodes as JSON false; it is never encoded as an empty list.
type ConflictResult struct {
	BookingIDs []string
}

// HasConflict reports whether any booking conflicts.
func (r ConflictResult) HasConflict() bool {
	return len(r.BookingIDs) > 0
}

// MarshalJSON renders false or the non-empty id list.
func (r ConflictResult) MarshalJSON() ([]byte, error) {
	if !r.HasConflict() {
		return []byte("false"), nil
	}
	return json.Marshal(r.BookingIDs)
}

// UnmarshalJSON accepts false or an id list.
func (r *ConflictResult) UnmarshalJSON(data []byte) error {
	if string(data) == "false" || string(data) == "null" {
		r.BookingIDs = nil
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	if len(ids) == 0 {
		ids = nil
	}
	r.BookingIDs = ids
	return nil
}

// BufferedRange is an appointment's window widened by the travel time
// between it and a prospective location.
type BufferedRange struct {
	AppointmentID string        `json:"appointment_id"`
	Window        TimeWindow    `json:"window"`
	Travel        time.Duration `json:"travel_seconds"`
}

// MarshalJSON reports travel in whole seconds.
func (r BufferedRange) MarshalJSON() ([]byte, error) {
	type plain struct {
		AppointmentID string     `json:"appointment_id"`
		Window        TimeWindow `json:"window"`
		TravelSeconds int64      `json:"travel_seconds"`
	}
	return json.Marshal(plain{r.AppointmentID, r.Window, int64(r.Travel / time.Second)})
}

// Event types.
const (
	AppointmentCreated   = "created"
	AppointmentUpdated   = "updated"
	AppointmentCancelled = "cancelled"

	AreaUpdated = "updated"
	AreaDeleted = "deleted"
)

// AppointmentEvent is published when an appointment changes.
type AppointmentEvent struct {
	Type        string       `json:"type"` // created | updated | cancelled
	Appointment *Appointment `json:"appointment,omitempty"`
	ID          string       `json:"id"`
	UserID      string       `json:"user_id,omitempty"`
	Time        time.Time    `json:"time"`
}

// AreaEvent is published when a provider's service area is written or removed.
type AreaEvent struct {
	Type       string       `json:"type"` // updated | deleted
	ProviderID string       `json:"provider_id"`
	Area       *ServiceArea `json:"area,omitempty"`
	Time       time.Time    `json:"time"`
}

// BookingsInvalidated is published when a shrinking service area leaves
// existing bookings outside the provider's coverage.
type BookingsInvalidated struct {
	ProviderID string    `json:"provider_id"`
	BookingIDs []string  `json:"booking_ids"`
	Time       time.Time `json:"time"`
}

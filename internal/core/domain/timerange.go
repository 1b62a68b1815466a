package domain

import (
	"fmt"
	"time"
)

// TimeWindow is a closed interval [Start, Finish] of zoned instants.
// Build it with NewTimeWindow; the zero value is not a valid window.
type TimeWindow struct {
	Start  time.Time `json:"start"`
	Finish time.Time `json:"finish"`
}

// NewTimeWindow returns ErrInvalidRange unless start is strictly before finish.
func NewTimeWindow(start, finish time.Time) (TimeWindow, error) {
	if !start.Before(finish) {
		return TimeWindow{}, fmt.Errorf("%w: %s >= %s", ErrInvalidRange,
			start.Format(time.RFC3339), finish.Format(time.RFC3339))
	}
	return TimeWindow{Start: start, Finish: finish}, nil
}

// Validate re-checks the start < finish invariant, e.g. after JSON decoding.
func (w TimeWindow) Validate() error {
	_, err := NewTimeWindow(w.Start, w.Finish)
	return err
}

// Overlaps reports whether the two closed intervals share any instant.
// Touching endpoints count as overlapping.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return !w.Start.After(other.Finish) && !w.Finish.Before(other.Start)
}

// Shift widens the window by buffer on both sides.
func (w TimeWindow) Shift(buffer time.Duration) TimeWindow {
	return TimeWindow{Start: w.Start.Add(-buffer), Finish: w.Finish.Add(buffer)}
}

// Contains reports whether t falls inside the closed window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.Finish)
}

// In returns the same window expressed in loc.
func (w TimeWindow) In(loc *time.Location) TimeWindow {
	return TimeWindow{Start: w.Start.In(loc), Finish: w.Finish.In(loc)}
}

// DayBounds returns [00:00, 23:59:59.999999999] of t's calendar day in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a persisted instant. Clients and older writers may send the
// textual form of a date; it is stored verbatim in Text until normalised.
// A Timestamp is canonical when Text is empty and Time is set.
type Timestamp struct {
	Time time.Time
	Text string
}

// At returns a canonical Timestamp.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

// Canonical reports whether the instant is stored in its canonical form.
func (t Timestamp) Canonical() bool {
	return t.Text == "" && !t.Time.IsZero()
}

// IsZero reports whether neither form is set.
func (t Timestamp) IsZero() bool {
	return t.Text == "" && t.Time.IsZero()
}

// textLayouts are tried in order; layouts without an offset are read in the
// scheduling zone.
var textLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Resolve returns the instant in loc, parsing the text form when needed.
func (t Timestamp) Resolve(loc *time.Location) (time.Time, error) {
	if t.Canonical() {
		return t.Time.In(loc), nil
	}
	raw := strings.TrimSpace(t.Text)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInconsistentRecord)
	}
	for _, layout := range textLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed.In(loc), nil
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("%w: unparseable timestamp %q", ErrInconsistentRecord, raw)
}

type wireTimestamp struct {
	Seconds     *int64 `json:"_seconds"`
	Nanoseconds int64  `json:"_nanoseconds"`
}

// MarshalJSON encodes canonical instants as {"_seconds","_nanoseconds"} so a
// round trip keeps them canonical; text forms are emitted as strings.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case t.Text != "":
		return json.Marshal(t.Text)
	case t.Time.IsZero():
		return []byte("null"), nil
	}
	secs := t.Time.Unix()
	return json.Marshal(wireTimestamp{Seconds: &secs, Nanoseconds: int64(t.Time.Nanosecond())})
}

// UnmarshalJSON accepts a string (kept as text), unix seconds, or a
// {"_seconds","_nanoseconds"} object.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Timestamp{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &t.Text)
	case data[0] == '{':
		var w wireTimestamp
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		if w.Seconds == nil {
			return fmt.Errorf("timestamp object missing _seconds")
		}
		t.Time = time.Unix(*w.Seconds, w.Nanoseconds)
		return nil
	default:
		if secs, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			t.Time = time.Unix(secs, 0)
			return nil
		}
		secs, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		t.Time = time.Unix(0, int64(secs*float64(time.Second)))
		return nil
	}
}

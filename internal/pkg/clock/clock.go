// Package clock provides the scheduling clock injected into the use cases.
package clock

import (
	"fmt"
	"time"
)

// Zoned is the wall clock read in a fixed scheduling zone.
type Zoned struct {
	loc *time.Location
}

// NewZoned loads the IANA zone name, e.g. "Europe/London".
func NewZoned(zone string) (*Zoned, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", zone, err)
	}
	return &Zoned{loc: loc}, nil
}

func (z *Zoned) Now() time.Time          { return time.Now().In(z.loc) }
func (z *Zoned) Location() *time.Location { return z.loc }

// Fixed always returns the same instant. Used in tests and replays.
type Fixed struct {
	At  time.Time
	Loc *time.Location
}

func (f Fixed) Now() time.Time { return f.At.In(f.Location()) }

func (f Fixed) Location() *time.Location {
	if f.Loc == nil {
		return time.UTC
	}
	return f.Loc
}

package domain

import (
	"fmt"
	"math"
)

// Coordinate represents a geographic coordinate (WGS 84).
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies on the globe.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return fmt.Errorf("%w: NaN component", ErrInvalidCoordinate)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %.6f out of range", ErrInvalidCoordinate, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %.6f out of range", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// String renders "lat,lon", the form most routing APIs accept.
func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

// GeohashBound is an inclusive lexical range over geohash strings.
type GeohashBound struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether hash sorts inside the bound.
func (b GeohashBound) Contains(hash string) bool {
	return hash >= b.Start && hash <= b.End
}

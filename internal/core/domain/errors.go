package domain

import "errors"

// Caller-input errors. Rejected immediately and never retried.
var (
	ErrInvalidRange      = errors.New("invalid range: start must be before finish")
	ErrMissingLocation   = errors.New("missing location")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRadius     = errors.New("invalid radius")
	ErrInvalidDate       = errors.New("invalid date")
	ErrMissingProvider   = errors.New("missing provider id")
)

// ErrDependencyUnavailable marks a failed travel-time or persistence call.
// Callers may retry the whole operation.
var ErrDependencyUnavailable = errors.New("dependency unavailable")

// ErrInconsistentRecord marks a persisted time field that is not in canonical form.
var ErrInconsistentRecord = errors.New("inconsistent record")

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// IsInputError reports whether err was caused by bad caller input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrMissingLocation) ||
		errors.Is(err, ErrInvalidCoordinate) ||
		errors.Is(err, ErrInvalidRadius) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrMissingProvider)
}

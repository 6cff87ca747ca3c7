// Package sentinel holds the infrastructure-level errors shared by every store
// implementation. Services translate these into domain error codes.
package sentinel

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write loses to an existing record.
	ErrConflict = errors.New("record conflict")
	// ErrUnavailable is returned when the backing store cannot serve the request right now.
	ErrUnavailable = errors.New("store unavailable")
)

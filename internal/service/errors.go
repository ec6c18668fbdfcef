// Package service contains the booking lifecycle logic: validation,
// conflict scanning, recurrence handling and the administrative
// override procedure.  Handlers translate the error values defined
// here into HTTP responses.
package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the requested room or booking does not exist.
	ErrNotFound = errors.New("service: not found")
	// ErrUnauthorized is returned when the actor lacks rights for the requested mutation.
	ErrUnauthorized = errors.New("service: unauthorized")
	// ErrConflict is returned when an interval collision blocks a non-privileged
	// create or update.  Use errors.As with *ConflictError to read the details.
	ErrConflict = errors.New("service: booking conflict")
	// ErrInvalidState is returned when an operation is not permitted for the
	// booking's current state, e.g. deleting an active future booking.
	ErrInvalidState = errors.New("service: invalid state")
)

// ValidationError reports missing or malformed input fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Msg }

// ConflictError carries the detail of an interval collision.  For
// recurring creation, Dates lists the specific colliding calendar
// dates (YYYY-MM-DD) so the caller can adjust the request.
type ConflictError struct {
	RoomID uint64
	Dates  []string
}

func (e *ConflictError) Error() string {
	if len(e.Dates) == 0 {
		return fmt.Sprintf("room %d is already booked for the requested time", e.RoomID)
	}
	return fmt.Sprintf("room %d has conflicting bookings on %s", e.RoomID, strings.Join(e.Dates, ", "))
}

// Is lets errors.Is(err, ErrConflict) match a *ConflictError.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors directly.
package repository

import "errors"

// ErrRoomNotFound is returned when a room lookup finds no row.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound is returned when a booking lookup finds no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrGroupNotFound is returned when a recurrence group lookup finds no row.
var ErrGroupNotFound = errors.New("recurrence group not found")

// ErrNameExists is returned when a room insert or update violates the
// unique name constraint. Handlers should translate this into an
// HTTP 409 response.
var ErrNameExists = errors.New("room name already exists")

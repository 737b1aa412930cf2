package application

import (
	"errors"
	"time"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniqueness constraint rejects a write.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidCredentials is returned for any failed login attempt. Unknown
	// account and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("application: invalid credentials")

	// ErrRoomNotFound is returned when the referenced room does not exist.
	ErrRoomNotFound = errors.New("application: room not found")
	// ErrRoomInactive is returned when the referenced room exists but is not bookable.
	ErrRoomInactive = errors.New("application: room is inactive")
	// ErrRoomInUse is returned when a room cannot be deleted or deactivated
	// because confirmed reservations for it still start in the future.
	ErrRoomInUse = errors.New("application: room has upcoming reservations")

	// ErrReservationNotFound is returned when a reservation is absent or the
	// caller is neither its owner nor an administrator. The two cases are
	// indistinguishable on purpose.
	ErrReservationNotFound = errors.New("application: reservation not found")
	// ErrReservationCancelled is returned when a cancelled reservation is
	// modified or cancelled again.
	ErrReservationCancelled = errors.New("application: reservation is cancelled")
	// ErrPastReservation is returned when an operation requires the
	// reservation to start in the future.
	ErrPastReservation = errors.New("application: reservation is in the past")
	// ErrInvalidRange is returned when a requested slot does not satisfy
	// start < end with a strictly future start.
	ErrInvalidRange = errors.New("application: invalid time range")
	// ErrDurationExceeded is returned when a requested slot is longer than the
	// maximum booking duration.
	ErrDurationExceeded = errors.New("application: maximum duration exceeded")
	// ErrOutsideOperatingHours is returned when a requested slot falls outside
	// the room's bookable window.
	ErrOutsideOperatingHours = errors.New("application: outside operating hours")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictDetail identifies one existing reservation blocking a requested slot.
type ConflictDetail struct {
	ReservationID string
	RoomID        string
	Start         time.Time
	End           time.Time
}

// ConflictError reports that a requested slot overlaps confirmed reservations.
type ConflictError struct {
	Conflicts []ConflictDetail
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	return "reservation conflicts with existing bookings"
}

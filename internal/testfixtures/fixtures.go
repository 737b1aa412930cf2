package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

var (
	userCounter        uint64
	roomCounter        uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserOption configures a generated user record.
type UserOption func(*persistence.User)

// NewUser returns a deterministic user record with optional overrides.
func NewUser(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Name:         fmt.Sprintf("User %03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         "user",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) {
		u.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) {
		u.Email = email
	}
}

// AsAdmin marks the user as an administrator.
func AsAdmin() UserOption {
	return func(u *persistence.User) {
		u.Role = "admin"
	}
}

// RoomOption configures a generated room record.
type RoomOption func(*persistence.Room)

// NewRoom returns a deterministic active room record with optional overrides.
// Rooms default to a 08:00 to 20:00 operating window.
func NewRoom(opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	room := persistence.Room{
		ID:            id,
		Name:          fmt.Sprintf("Meeting Room %03d", idx),
		Location:      fmt.Sprintf("Floor %d", idx%10),
		Capacity:      8,
		AvailableFrom: "08:00:00",
		AvailableTo:   "20:00:00",
		IsActive:      true,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *persistence.Room) {
		r.ID = id
	}
}

// WithRoomHours overrides the room's operating window.
func WithRoomHours(from, to string) RoomOption {
	return func(r *persistence.Room) {
		r.AvailableFrom = from
		r.AvailableTo = to
	}
}

// Inactive marks the room as deactivated.
func Inactive() RoomOption {
	return func(r *persistence.Room) {
		r.IsActive = false
	}
}

// ReservationOption configures a generated reservation record.
type ReservationOption func(*persistence.Reservation)

// NewReservation returns a deterministic confirmed reservation with optional
// overrides. Each generated reservation occupies its own one hour slot so
// default fixtures never overlap.
func NewReservation(userID, roomID string, opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	reservation := persistence.Reservation{
		ID:        fmt.Sprintf("res-%03d", idx),
		UserID:    userID,
		RoomID:    roomID,
		Start:     start,
		End:       start.Add(time.Hour),
		Purpose:   fmt.Sprintf("Meeting %03d", idx),
		Status:    persistence.ReservationStatusConfirmed,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&reservation)
	}
	return reservation
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.ID = id
	}
}

// WithSlot overrides the reserved time slot.
func WithSlot(start, end time.Time) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Start = start
		r.End = end
	}
}

// Cancelled marks the reservation as cancelled.
func Cancelled() ReservationOption {
	return func(r *persistence.Reservation) {
		r.Status = persistence.ReservationStatusCancelled
	}
}

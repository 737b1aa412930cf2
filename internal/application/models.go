package application

import (
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

// User roles recognised by the services.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Room represents a bookable meeting room.
type Room struct {
	ID            string
	Name          string
	Location      string
	Capacity      int
	AvailableFrom string
	AvailableTo   string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name          string
	Location      string
	Capacity      int
	AvailableFrom string
	AvailableTo   string
	IsActive      bool
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// ListRoomsParams wraps the data required to list rooms.
type ListRoomsParams struct {
	Principal Principal
	// Active filters by the active flag when non-nil.
	Active *bool
}

// RoomDayAvailability pairs a room with its confirmed bookings for one day.
type RoomDayAvailability struct {
	Room         Room
	Reservations []Reservation
}

// Reservation represents a booked time slot for a room.
type Reservation struct {
	ID         string
	UserID     string
	RoomID     string
	Start      time.Time
	End        time.Time
	Purpose    string
	Department *string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	RoomID     string
	Start      time.Time
	End        time.Time
	Purpose    string
	Department *string
}

// ReservationPatch carries the fields an update may change. Nil fields are
// left untouched.
type ReservationPatch struct {
	Start      *time.Time
	End        *time.Time
	Purpose    *string
	Department *string
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// UpdateReservationParams wraps the data required to update a reservation.
type UpdateReservationParams struct {
	Principal     Principal
	ReservationID string
	Patch         ReservationPatch
}

// ListMyReservationsParams wraps the data required to list the caller's reservations.
type ListMyReservationsParams struct {
	Principal Principal
	Status    string
	Limit     int
}

// ListAllReservationsParams wraps an administrator's reservation query.
type ListAllReservationsParams struct {
	Principal   Principal
	Status      string
	RoomID      string
	UserID      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
	Limit       int
}

// CheckAvailabilityParams wraps an advisory availability query.
type CheckAvailabilityParams struct {
	Principal Principal
	RoomID    string
	Start     time.Time
	End       time.Time
}

// AvailabilityResult reports the outcome of an advisory availability query.
// It reflects the reservations visible at query time and is never a booking
// guarantee; the write transaction re-checks before committing.
type AvailabilityResult struct {
	Available bool
	Conflicts []ConflictDetail
}

// User represents an account exposed by the application services.
type User struct {
	ID         string
	Name       string
	Email      string
	Role       string
	Department *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RegisterParams captures the data required to create an account.
type RegisterParams struct {
	Name       string
	Email      string
	Password   string
	Department *string
}

// LoginParams captures the data required to authenticate.
type LoginParams struct {
	Email    string
	Password string
}

// AuthResult captures a successful registration or login.
type AuthResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// ListUsersParams wraps an administrator's user query.
type ListUsersParams struct {
	Principal  Principal
	Role       string
	Department string
	Limit      int
}

// UpdateUserRoleParams wraps an administrator's role change.
type UpdateUserRoleParams struct {
	Principal Principal
	UserID    string
	Role      string
}

// UpdateProfileParams wraps a self-service profile change. Nil fields are
// left untouched.
type UpdateProfileParams struct {
	Principal  Principal
	Name       *string
	Department *string
}

// ListScheduleParams wraps a self-service upcoming or past reservation query.
type ListScheduleParams struct {
	Principal Principal
	Limit     int
}

func roomFromRecord(record persistence.Room) Room {
	return Room{
		ID:            record.ID,
		Name:          record.Name,
		Location:      record.Location,
		Capacity:      record.Capacity,
		AvailableFrom: record.AvailableFrom,
		AvailableTo:   record.AvailableTo,
		IsActive:      record.IsActive,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func reservationFromRecord(record persistence.Reservation) Reservation {
	return Reservation{
		ID:         record.ID,
		UserID:     record.UserID,
		RoomID:     record.RoomID,
		Start:      record.Start,
		End:        record.End,
		Purpose:    record.Purpose,
		Department: record.Department,
		Status:     record.Status,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

func reservationRecord(reservation Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:         reservation.ID,
		UserID:     reservation.UserID,
		RoomID:     reservation.RoomID,
		Start:      reservation.Start,
		End:        reservation.End,
		Purpose:    reservation.Purpose,
		Department: reservation.Department,
		Status:     reservation.Status,
		CreatedAt:  reservation.CreatedAt,
		UpdatedAt:  reservation.UpdatedAt,
	}
}

func userFromRecord(record persistence.User) User {
	return User{
		ID:         record.ID,
		Name:       record.Name,
		Email:      record.Email,
		Role:       record.Role,
		Department: record.Department,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

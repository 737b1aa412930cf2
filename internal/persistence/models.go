package persistence

import "time"

// Reservation status values stored in the reservations table.
const (
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
)

// User represents an account in the reservation system.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Department   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable meeting room.
type Room struct {
	ID            string
	Name          string
	Location      string
	Capacity      int
	AvailableFrom string // time-of-day, "HH:MM:SS"
	AvailableTo   string // time-of-day, "HH:MM:SS"
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
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

// AuditLog represents a recorded administrative or lifecycle action.
type AuditLog struct {
	ID         string
	Action     string
	ActorID    string
	EntityType string
	EntityID   string
	Details    map[string]any
	RecordedAt time.Time
}

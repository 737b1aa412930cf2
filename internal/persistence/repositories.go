package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
}

// UserFilter narrows user listings.
type UserFilter struct {
	Role       string
	Department string
	Limit      int
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
	// CountFutureConfirmedReservations reports how many confirmed
	// reservations for the room start after the reference instant. Room
	// deletion and deactivation are refused while the count is non-zero.
	CountFutureConfirmedReservations(ctx context.Context, roomID string, reference time.Time) (int, error)
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	// Active filters by the is_active flag when non-nil.
	Active *bool
}

// ReservationFilter narrows reservation queries.
type ReservationFilter struct {
	UserID      string
	RoomID      string
	Status      string
	StartsAfter *time.Time
	EndsBefore  *time.Time
	// OldestFirst orders by ascending start instead of the default
	// descending order.
	OldestFirst bool
	Limit       int
}

// ReservationRepository stores reservation records. CreateReservation and
// UpdateReservation re-run the confirmed-overlap predicate inside the write
// transaction and fail with ErrConflict when the slot was taken in between;
// that transaction boundary is the authoritative availability guarantee.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// ListForRoom returns reservations for a room intersecting [from, to),
	// optionally restricted to a status.
	ListForRoom(ctx context.Context, roomID string, from, to time.Time, status string) ([]Reservation, error)
	SetStatus(ctx context.Context, id string, status string, updatedAt time.Time) error
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	Action     string
	EntityType string
	ActorID    string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// AuditStats summarises the recorded audit trail.
type AuditStats struct {
	TotalEntries int
	TodayEntries int
	ActionCounts map[string]int
}

// AuditRepository stores the durable audit trail.
type AuditRepository interface {
	InsertAuditLog(ctx context.Context, entry AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]AuditLog, error)
	AuditLogStats(ctx context.Context, today time.Time) (AuditStats, error)
	// ClearAuditLogs deletes every recorded entry and reports how many
	// rows were removed.
	ClearAuditLogs(ctx context.Context) (int, error)
}

// UtilizationRow reports booked hours per room for the statistics view.
type UtilizationRow struct {
	RoomID     string
	RoomName   string
	Bookings   int
	TotalHours float64
}

// PeakHourRow reports how many confirmed reservations start in a given hour.
type PeakHourRow struct {
	Hour     int
	Bookings int
}

// Statistics aggregates the admin dashboard numbers.
type Statistics struct {
	TotalReservations     int
	ConfirmedReservations int
	TotalUsers            int
	ActiveRooms           int
	RoomUtilization       []UtilizationRow
	PeakHours             []PeakHourRow
}

// MostUsedRoom names the room a user books most often.
type MostUsedRoom struct {
	RoomID   string
	RoomName string
	Bookings int
}

// UserStatistics summarises one account's booking history.
type UserStatistics struct {
	TotalReservations     int
	ConfirmedReservations int
	CancelledReservations int
	TotalHours            float64
	// MostUsedRoom is nil while the user has no confirmed bookings.
	MostUsedRoom *MostUsedRoom
}

// StatisticsRepository computes aggregate usage numbers.
type StatisticsRepository interface {
	Statistics(ctx context.Context, from, to *time.Time) (Statistics, error)
	UserStatistics(ctx context.Context, userID string) (UserStatistics, error)
}

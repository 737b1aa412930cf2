// Package notify defines the reservation notification contract. Deliveries
// are best-effort: the lifecycle services fire them after commit and never
// look at the outcome.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Reservation carries the fields a notification renders.
type Reservation struct {
	ID      string
	RoomID  string
	Start   time.Time
	End     time.Time
	Purpose string
}

// Recipient identifies who receives the notification.
type Recipient struct {
	UserID string
	Name   string
	Email  string
}

// Room names the booked room for display.
type Room struct {
	ID       string
	Name     string
	Location string
}

// Notifier delivers reservation lifecycle notifications. Implementations
// must not block or surface errors to callers.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, reservation Reservation, recipient Recipient, room Room)
	ReservationUpdated(ctx context.Context, reservation Reservation, recipient Recipient, room Room)
	ReservationCancelled(ctx context.Context, reservation Reservation, recipient Recipient, room Room)
}

// LogNotifier writes would-be emails as structured log records instead of
// sending them, which is the shipped delivery mode.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) emit(ctx context.Context, subject string, reservation Reservation, recipient Recipient, room Room) {
	n.logger.InfoContext(ctx, "email notification",
		"subject", subject,
		"to", recipient.Email,
		"recipient_name", recipient.Name,
		"room", room.Name,
		"location", room.Location,
		"reservation_id", reservation.ID,
		"start", reservation.Start.Format(time.RFC3339),
		"end", reservation.End.Format(time.RFC3339),
	)
}

// ReservationConfirmed implements Notifier.
func (n *LogNotifier) ReservationConfirmed(ctx context.Context, reservation Reservation, recipient Recipient, room Room) {
	n.emit(ctx, "Meeting Room Reservation Confirmed", reservation, recipient, room)
}

// ReservationUpdated implements Notifier.
func (n *LogNotifier) ReservationUpdated(ctx context.Context, reservation Reservation, recipient Recipient, room Room) {
	n.emit(ctx, "Meeting Room Reservation Updated", reservation, recipient, room)
}

// ReservationCancelled implements Notifier.
func (n *LogNotifier) ReservationCancelled(ctx context.Context, reservation Reservation, recipient Recipient, room Room) {
	n.emit(ctx, "Meeting Room Reservation Cancelled", reservation, recipient, room)
}

// Discard drops every notification. Useful in tests.
type Discard struct{}

func (Discard) ReservationConfirmed(context.Context, Reservation, Recipient, Room) {}
func (Discard) ReservationUpdated(context.Context, Reservation, Recipient, Room)   {}
func (Discard) ReservationCancelled(context.Context, Reservation, Recipient, Room) {}

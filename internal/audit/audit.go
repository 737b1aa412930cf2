// Package audit defines the audit-trail contract the reservation services
// emit into. Recording is fire-and-forget: implementations must never block
// or fail the business operation that triggered the entry.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Well-known audit actions.
const (
	ActionReservationCreated   = "reservation_created"
	ActionReservationUpdated   = "reservation_updated"
	ActionReservationCancelled = "reservation_cancelled"
	ActionRoomCreated          = "room_created"
	ActionRoomUpdated          = "room_updated"
	ActionRoomDeleted          = "room_deleted"
	ActionUserRegistered       = "user_registered"
	ActionUserRoleUpdated      = "user_role_updated"
	ActionProfileUpdated       = "profile_updated"
)

// Entry is one recorded action.
type Entry struct {
	Action     string
	ActorID    string
	EntityType string
	EntityID   string
	Details    map[string]any
	RecordedAt time.Time
}

// Sink accepts audit entries. Record must swallow its own failures; callers
// treat it as infallible.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Recorder persists entries through a store, logging failures instead of
// propagating them.
type Recorder struct {
	store  Store
	idGen  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Store is the persistence seam for durable audit entries.
type Store interface {
	InsertEntry(ctx context.Context, id string, entry Entry) error
}

// NewRecorder builds a Recorder around the given store.
func NewRecorder(store Store, idGen func() string, now func() time.Time, logger *slog.Logger) *Recorder {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, idGen: idGen, now: now, logger: logger}
}

// Record persists the entry. Failures are logged and dropped; a lost audit
// entry must never abort the booking that produced it.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.store == nil {
		return
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = r.now()
	}
	if err := r.store.InsertEntry(ctx, r.idGen(), entry); err != nil {
		r.logger.ErrorContext(ctx, "failed to record audit entry",
			"action", entry.Action,
			"actor_id", entry.ActorID,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

// Discard is a Sink that drops every entry. Useful in tests.
type Discard struct{}

// Record implements Sink.
func (Discard) Record(context.Context, Entry) {}

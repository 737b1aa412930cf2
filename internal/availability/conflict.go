// Package availability implements the pure conflict-detection rules for room
// reservations. It has no persistence or transport dependencies so the same
// predicate backs both the advisory availability query and the authoritative
// commit-time re-check.
package availability

import (
	"github.com/example/room-reservations/internal/timerange"
)

// Status values recognised by the detector. Only confirmed reservations hold
// a room; cancelled ones never conflict.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Reservation is the minimal projection of a stored reservation that conflict
// detection needs.
type Reservation struct {
	ID     string
	RoomID string
	UserID string
	Range  timerange.Range
	Status string
}

// Conflict reports an existing confirmed reservation that overlaps the
// candidate interval on the same room.
type Conflict struct {
	ReservationID string
	RoomID        string
	Range         timerange.Range
}

// DetectConflicts returns every confirmed reservation on roomID whose
// interval overlaps candidate. Adjacent reservations (end == start) do not
// conflict; that is the half-open interval contract, not an edge case.
func DetectConflicts(existing []Reservation, roomID string, candidate timerange.Range) []Conflict {
	var conflicts []Conflict
	for _, reservation := range existing {
		if reservation.RoomID != roomID {
			continue
		}
		if reservation.Status != StatusConfirmed {
			continue
		}
		if !candidate.Overlaps(reservation.Range) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			ReservationID: reservation.ID,
			RoomID:        reservation.RoomID,
			Range:         reservation.Range,
		})
	}
	return conflicts
}

// IsAvailable reports whether candidate is free of conflicts on roomID, with
// the conflicting reservations when it is not.
func IsAvailable(existing []Reservation, roomID string, candidate timerange.Range) (bool, []Conflict) {
	conflicts := DetectConflicts(existing, roomID, candidate)
	return len(conflicts) == 0, conflicts
}

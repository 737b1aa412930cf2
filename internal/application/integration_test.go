package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/testfixtures"
)

// These tests run the services against a real migrated SQLite database
// instead of the in-memory fakes used elsewhere in the package.

func TestReservationLifecycleOnSQLite(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("it")

	owner := testfixtures.NewUser()
	if err := harness.Users.CreateUser(ctx, owner); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	room := testfixtures.NewRoom()
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("seed room: %v", err)
	}

	svc := NewReservationService(harness.Reservations, harness.Rooms, harness.Users, nil, nil, ids.NextFunc(), clock.NowFunc())
	principal := Principal{UserID: owner.ID}

	start := clock.Now().Add(2 * time.Hour)
	first, err := svc.Create(ctx, CreateReservationParams{
		Principal: principal,
		Input:     ReservationInput{RoomID: room.ID, Start: start, End: start.Add(time.Hour), Purpose: "Sprint planning"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A slot overlapping the stored booking is refused with its details.
	_, err = svc.Create(ctx, CreateReservationParams{
		Principal: principal,
		Input:     ReservationInput{RoomID: room.ID, Start: start.Add(30 * time.Minute), End: start.Add(90 * time.Minute), Purpose: "Standup"},
	})
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("Create() overlapping error = %v, want ConflictError", err)
	}
	if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].ReservationID != first.ID {
		t.Fatalf("conflicts = %+v", cErr.Conflicts)
	}

	// A back-to-back slot is not a conflict.
	second, err := svc.Create(ctx, CreateReservationParams{
		Principal: principal,
		Input:     ReservationInput{RoomID: room.ID, Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), Purpose: "Retro"},
	})
	if err != nil {
		t.Fatalf("Create() adjacent error = %v", err)
	}

	// Cancelling frees the slot for a new booking.
	if err := svc.Cancel(ctx, principal, first.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if _, err := svc.Create(ctx, CreateReservationParams{
		Principal: principal,
		Input:     ReservationInput{RoomID: room.ID, Start: start, End: start.Add(time.Hour), Purpose: "Replacement"},
	}); err != nil {
		t.Fatalf("Create() after cancel error = %v", err)
	}

	mine, err := svc.ListMine(ctx, ListMyReservationsParams{Principal: principal, Status: "confirmed"})
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("ListMine() returned %d reservations, want 2", len(mine))
	}

	if _, err := svc.Get(ctx, Principal{UserID: "someone-else"}, second.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("Get() by stranger error = %v, want %v", err, ErrReservationNotFound)
	}
}

func TestRoomDeactivationGuardOnSQLite(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	clock := testfixtures.NewClock(time.Time{})
	ids := testfixtures.NewIDGenerator("it")

	owner := testfixtures.NewUser()
	if err := harness.Users.CreateUser(ctx, owner); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	room := testfixtures.NewRoom()
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	future := testfixtures.NewReservation(owner.ID, room.ID,
		testfixtures.WithSlot(clock.Now().Add(24*time.Hour), clock.Now().Add(25*time.Hour)))
	if err := harness.Reservations.CreateReservation(ctx, future); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	svc := NewRoomService(harness.Rooms, harness.Reservations, nil, ids.NextFunc(), clock.NowFunc())
	admin := Principal{UserID: "admin-1", IsAdmin: true}
	input := RoomInput{
		Name:          room.Name,
		Location:      room.Location,
		Capacity:      room.Capacity,
		AvailableFrom: room.AvailableFrom,
		AvailableTo:   room.AvailableTo,
		IsActive:      false,
	}

	if _, err := svc.UpdateRoom(ctx, UpdateRoomParams{Principal: admin, RoomID: room.ID, Input: input}); !errors.Is(err, ErrRoomInUse) {
		t.Fatalf("UpdateRoom() error = %v, want %v", err, ErrRoomInUse)
	}
	if err := svc.DeleteRoom(ctx, admin, room.ID); !errors.Is(err, ErrRoomInUse) {
		t.Fatalf("DeleteRoom() error = %v, want %v", err, ErrRoomInUse)
	}

	// Once the booking is cancelled the room can be deactivated.
	if err := harness.Reservations.SetStatus(ctx, future.ID, "cancelled", clock.Now()); err != nil {
		t.Fatalf("cancel seeded reservation: %v", err)
	}
	updated, err := svc.UpdateRoom(ctx, UpdateRoomParams{Principal: admin, RoomID: room.ID, Input: input})
	if err != nil {
		t.Fatalf("UpdateRoom() after cancel error = %v", err)
	}
	if updated.IsActive {
		t.Fatal("room should be inactive after the update")
	}
}

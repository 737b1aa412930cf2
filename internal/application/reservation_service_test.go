package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/audit"
	"github.com/example/room-reservations/internal/notify"
	"github.com/example/room-reservations/internal/persistence"
)

var testNow = time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

type reservationStoreFake struct {
	reservations map[string]persistence.Reservation
	createErr    error
	updateErr    error
	listErr      error
}

func newReservationStoreFake() *reservationStoreFake {
	return &reservationStoreFake{reservations: make(map[string]persistence.Reservation)}
}

func (f *reservationStoreFake) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.reservations[reservation.ID] = reservation
	return nil
}

func (f *reservationStoreFake) UpdateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.reservations[reservation.ID]; !ok {
		return persistence.ErrNotFound
	}
	f.reservations[reservation.ID] = reservation
	return nil
}

func (f *reservationStoreFake) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	reservation, ok := f.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return reservation, nil
}

func (f *reservationStoreFake) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []persistence.Reservation
	for _, r := range f.reservations {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.RoomID != "" && r.RoomID != filter.RoomID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.StartsAfter != nil && r.Start.Before(*filter.StartsAfter) {
			continue
		}
		if filter.EndsBefore != nil && r.End.After(*filter.EndsBefore) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.OldestFirst {
			return out[i].Start.Before(out[j].Start)
		}
		return out[j].Start.Before(out[i].Start)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *reservationStoreFake) ListForRoom(ctx context.Context, roomID string, from, to time.Time, status string) ([]persistence.Reservation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []persistence.Reservation
	for _, r := range f.reservations {
		if r.RoomID != roomID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		if !r.Start.Before(to) || !r.End.After(from) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *reservationStoreFake) SetStatus(ctx context.Context, id string, status string, updatedAt time.Time) error {
	reservation, ok := f.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	reservation.Status = status
	reservation.UpdatedAt = updatedAt
	f.reservations[id] = reservation
	return nil
}

type roomDirFake struct {
	rooms map[string]persistence.Room
}

func (f *roomDirFake) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

type userDirFake struct {
	users map[string]persistence.User
}

func (f *userDirFake) GetUser(ctx context.Context, id string) (persistence.User, error) {
	user, ok := f.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

type auditSinkRecorder struct {
	entries []audit.Entry
}

func (a *auditSinkRecorder) Record(_ context.Context, entry audit.Entry) {
	a.entries = append(a.entries, entry)
}

type notifierRecorder struct {
	confirmed []notify.Reservation
	updated   []notify.Reservation
	cancelled []notify.Reservation
}

func (n *notifierRecorder) ReservationConfirmed(_ context.Context, r notify.Reservation, _ notify.Recipient, _ notify.Room) {
	n.confirmed = append(n.confirmed, r)
}

func (n *notifierRecorder) ReservationUpdated(_ context.Context, r notify.Reservation, _ notify.Recipient, _ notify.Room) {
	n.updated = append(n.updated, r)
}

func (n *notifierRecorder) ReservationCancelled(_ context.Context, r notify.Reservation, _ notify.Recipient, _ notify.Room) {
	n.cancelled = append(n.cancelled, r)
}

type reservationFixture struct {
	service      *ReservationService
	reservations *reservationStoreFake
	rooms        *roomDirFake
	auditor      *auditSinkRecorder
	notifier     *notifierRecorder
}

func newReservationFixture() *reservationFixture {
	reservations := newReservationStoreFake()
	rooms := &roomDirFake{rooms: map[string]persistence.Room{
		"room-1": {
			ID:            "room-1",
			Name:          "Boardroom",
			Location:      "Floor 3",
			Capacity:      12,
			AvailableFrom: "08:00:00",
			AvailableTo:   "20:00:00",
			IsActive:      true,
		},
		"room-closed": {
			ID:            "room-closed",
			Name:          "Storage",
			AvailableFrom: "08:00:00",
			AvailableTo:   "20:00:00",
			IsActive:      false,
		},
	}}
	users := &userDirFake{users: map[string]persistence.User{
		"user-1": {ID: "user-1", Name: "Dana", Email: "dana@example.com"},
		"user-2": {ID: "user-2", Name: "Riley", Email: "riley@example.com"},
	}}
	auditor := &auditSinkRecorder{}
	notifier := &notifierRecorder{}

	service := NewReservationService(reservations, rooms, users, auditor, notifier, sequentialIDs("res"), fixedNow)
	return &reservationFixture{
		service:      service,
		reservations: reservations,
		rooms:        rooms,
		auditor:      auditor,
		notifier:     notifier,
	}
}

func validInput() ReservationInput {
	return ReservationInput{
		RoomID:  "room-1",
		Start:   testNow.Add(2 * time.Hour),
		End:     testNow.Add(3 * time.Hour),
		Purpose: "Sprint planning",
	}
}

func TestReservationService_Create(t *testing.T) {
	t.Run("requires purpose and room", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.Purpose = "   "
		input.RoomID = ""

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["purpose"]; !ok {
			t.Fatalf("expected purpose validation error, got %v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["room_id"]; !ok {
			t.Fatalf("expected room_id validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("rejects end before start", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.End = input.Start.Add(-time.Hour)

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("rejects start in the past", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.Start = testNow.Add(-time.Hour)
		input.End = testNow.Add(time.Hour)

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("rejects start equal to now", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.Start = testNow
		input.End = testNow.Add(time.Hour)

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange, got %v", err)
		}
	})

	t.Run("rejects durations over four hours", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.End = input.Start.Add(4*time.Hour + time.Minute)

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if !errors.Is(err, ErrDurationExceeded) {
			t.Fatalf("expected ErrDurationExceeded, got %v", err)
		}
	})

	t.Run("allows exactly four hours", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.End = input.Start.Add(4 * time.Hour)

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})

	t.Run("rejects unknown and inactive rooms", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.RoomID = "room-missing"
		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}

		input.RoomID = "room-closed"
		_, err = fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if !errors.Is(err, ErrRoomInactive) {
			t.Fatalf("expected ErrRoomInactive, got %v", err)
		}
	})

	t.Run("rejects slots outside the room window", func(t *testing.T) {
		fx := newReservationFixture()

		input := validInput()
		input.Start = time.Date(2025, time.June, 2, 21, 0, 0, 0, time.UTC)
		input.End = time.Date(2025, time.June, 2, 22, 0, 0, 0, time.UTC)

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     input,
		})
		if !errors.Is(err, ErrOutsideOperatingHours) {
			t.Fatalf("expected ErrOutsideOperatingHours, got %v", err)
		}
	})

	t.Run("reports overlapping confirmed bookings", func(t *testing.T) {
		fx := newReservationFixture()
		fx.reservations.reservations["existing"] = persistence.Reservation{
			ID:     "existing",
			UserID: "user-2",
			RoomID: "room-1",
			Start:  testNow.Add(2*time.Hour + 30*time.Minute),
			End:    testNow.Add(3*time.Hour + 30*time.Minute),
			Status: persistence.ReservationStatusConfirmed,
		}

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     validInput(),
		})

		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].ReservationID != "existing" {
			t.Fatalf("unexpected conflicts: %+v", cErr.Conflicts)
		}
	})

	t.Run("allows adjacent bookings", func(t *testing.T) {
		fx := newReservationFixture()
		fx.reservations.reservations["existing"] = persistence.Reservation{
			ID:     "existing",
			UserID: "user-2",
			RoomID: "room-1",
			Start:  testNow.Add(time.Hour),
			End:    testNow.Add(2 * time.Hour),
			Status: persistence.ReservationStatusConfirmed,
		}

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     validInput(),
		})
		if err != nil {
			t.Fatalf("expected success for adjacent booking, got %v", err)
		}
	})

	t.Run("ignores cancelled bookings", func(t *testing.T) {
		fx := newReservationFixture()
		fx.reservations.reservations["existing"] = persistence.Reservation{
			ID:     "existing",
			UserID: "user-2",
			RoomID: "room-1",
			Start:  testNow.Add(2 * time.Hour),
			End:    testNow.Add(3 * time.Hour),
			Status: persistence.ReservationStatusCancelled,
		}

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     validInput(),
		})
		if err != nil {
			t.Fatalf("expected cancelled slot to be bookable, got %v", err)
		}
	})

	t.Run("maps transactional conflict rejection", func(t *testing.T) {
		fx := newReservationFixture()
		fx.reservations.createErr = persistence.ErrConflict

		_, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     validInput(),
		})

		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError from commit rejection, got %v", err)
		}
	})

	t.Run("persists, audits, and notifies", func(t *testing.T) {
		fx := newReservationFixture()

		created, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     validInput(),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if created.Status != persistence.ReservationStatusConfirmed {
			t.Fatalf("expected confirmed status, got %s", created.Status)
		}
		stored, ok := fx.reservations.reservations[created.ID]
		if !ok {
			t.Fatal("reservation not persisted")
		}
		if stored.UserID != "user-1" || stored.RoomID != "room-1" {
			t.Fatalf("unexpected stored reservation: %+v", stored)
		}

		if len(fx.auditor.entries) != 1 || fx.auditor.entries[0].Action != audit.ActionReservationCreated {
			t.Fatalf("expected reservation_created audit entry, got %+v", fx.auditor.entries)
		}
		if len(fx.notifier.confirmed) != 1 {
			t.Fatalf("expected confirmation notification, got %+v", fx.notifier.confirmed)
		}
	})
}

func TestReservationService_Get(t *testing.T) {
	fx := newReservationFixture()
	fx.reservations.reservations["res-1"] = persistence.Reservation{
		ID:     "res-1",
		UserID: "user-1",
		RoomID: "room-1",
		Status: persistence.ReservationStatusConfirmed,
	}

	t.Run("owner sees the reservation", func(t *testing.T) {
		got, err := fx.service.Get(context.Background(), Principal{UserID: "user-1"}, "res-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ID != "res-1" {
			t.Fatalf("unexpected reservation: %+v", got)
		}
	})

	t.Run("admin sees any reservation", func(t *testing.T) {
		if _, err := fx.service.Get(context.Background(), Principal{UserID: "user-9", IsAdmin: true}, "res-1"); err != nil {
			t.Fatalf("Get failed for admin: %v", err)
		}
	})

	t.Run("other users cannot distinguish foreign from absent", func(t *testing.T) {
		_, foreignErr := fx.service.Get(context.Background(), Principal{UserID: "user-2"}, "res-1")
		_, absentErr := fx.service.Get(context.Background(), Principal{UserID: "user-2"}, "res-missing")

		if !errors.Is(foreignErr, ErrReservationNotFound) || !errors.Is(absentErr, ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound for both, got %v and %v", foreignErr, absentErr)
		}
	})
}

func TestReservationService_Update(t *testing.T) {
	seed := func(fx *reservationFixture, status string, start time.Time) {
		fx.reservations.reservations["res-1"] = persistence.Reservation{
			ID:      "res-1",
			UserID:  "user-1",
			RoomID:  "room-1",
			Start:   start,
			End:     start.Add(time.Hour),
			Purpose: "Original",
			Status:  status,
		}
	}

	t.Run("treats foreign reservations as absent", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusConfirmed, testNow.Add(2*time.Hour))

		_, err := fx.service.Update(context.Background(), UpdateReservationParams{
			Principal:     Principal{UserID: "user-2"},
			ReservationID: "res-1",
		})
		if !errors.Is(err, ErrReservationNotFound) {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("rejects cancelled reservations", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusCancelled, testNow.Add(2*time.Hour))

		_, err := fx.service.Update(context.Background(), UpdateReservationParams{
			Principal:     Principal{UserID: "user-1"},
			ReservationID: "res-1",
		})
		if !errors.Is(err, ErrReservationCancelled) {
			t.Fatalf("expected ErrReservationCancelled, got %v", err)
		}
	})

	t.Run("rejects reservations already started", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusConfirmed, testNow.Add(-time.Hour))

		_, err := fx.service.Update(context.Background(), UpdateReservationParams{
			Principal:     Principal{UserID: "user-1"},
			ReservationID: "res-1",
		})
		if !errors.Is(err, ErrPastReservation) {
			t.Fatalf("expected ErrPastReservation, got %v", err)
		}
	})

	t.Run("conflict check excludes the reservation itself", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusConfirmed, testNow.Add(2*time.Hour))

		newStart := testNow.Add(2*time.Hour + 30*time.Minute)
		newEnd := newStart.Add(time.Hour)
		updated, err := fx.service.Update(context.Background(), UpdateReservationParams{
			Principal:     Principal{UserID: "user-1"},
			ReservationID: "res-1",
			Patch:         ReservationPatch{Start: &newStart, End: &newEnd},
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if !updated.Start.Equal(newStart) || !updated.End.Equal(newEnd) {
			t.Fatalf("patch not applied: %+v", updated)
		}
	})

	t.Run("reports conflicts with other bookings", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusConfirmed, testNow.Add(2*time.Hour))
		fx.reservations.reservations["res-2"] = persistence.Reservation{
			ID:     "res-2",
			UserID: "user-2",
			RoomID: "room-1",
			Start:  testNow.Add(5 * time.Hour),
			End:    testNow.Add(6 * time.Hour),
			Status: persistence.ReservationStatusConfirmed,
		}

		newStart := testNow.Add(5*time.Hour + 30*time.Minute)
		newEnd := newStart.Add(time.Hour)
		_, err := fx.service.Update(context.Background(), UpdateReservationParams{
			Principal:     Principal{UserID: "user-1"},
			ReservationID: "res-1",
			Patch:         ReservationPatch{Start: &newStart, End: &newEnd},
		})

		var cErr *ConflictError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if len(cErr.Conflicts) != 1 || cErr.Conflicts[0].ReservationID != "res-2" {
			t.Fatalf("unexpected conflicts: %+v", cErr.Conflicts)
		}
		if stored := fx.reservations.reservations["res-1"]; !stored.Start.Equal(testNow.Add(2 * time.Hour)) {
			t.Fatalf("stored reservation changed despite conflict: %+v", stored)
		}
	})

	t.Run("audits and notifies on success", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusConfirmed, testNow.Add(2*time.Hour))

		purpose := "Revised agenda"
		if _, err := fx.service.Update(context.Background(), UpdateReservationParams{
			Principal:     Principal{UserID: "user-1"},
			ReservationID: "res-1",
			Patch:         ReservationPatch{Purpose: &purpose},
		}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		if len(fx.auditor.entries) != 1 || fx.auditor.entries[0].Action != audit.ActionReservationUpdated {
			t.Fatalf("expected reservation_updated audit entry, got %+v", fx.auditor.entries)
		}
		if len(fx.notifier.updated) != 1 {
			t.Fatalf("expected update notification, got %+v", fx.notifier.updated)
		}
	})
}

func TestReservationService_Cancel(t *testing.T) {
	seed := func(fx *reservationFixture, status string, start time.Time) {
		fx.reservations.reservations["res-1"] = persistence.Reservation{
			ID:     "res-1",
			UserID: "user-1",
			RoomID: "room-1",
			Start:  start,
			End:    start.Add(time.Hour),
			Status: status,
		}
	}

	t.Run("rejects past reservations", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusConfirmed, testNow.Add(-time.Hour))

		err := fx.service.Cancel(context.Background(), Principal{UserID: "user-1"}, "res-1")
		if !errors.Is(err, ErrPastReservation) {
			t.Fatalf("expected ErrPastReservation, got %v", err)
		}
	})

	t.Run("rejects double cancellation", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusCancelled, testNow.Add(2*time.Hour))

		err := fx.service.Cancel(context.Background(), Principal{UserID: "user-1"}, "res-1")
		if !errors.Is(err, ErrReservationCancelled) {
			t.Fatalf("expected ErrReservationCancelled, got %v", err)
		}
	})

	t.Run("marks the reservation cancelled", func(t *testing.T) {
		fx := newReservationFixture()
		seed(fx, persistence.ReservationStatusConfirmed, testNow.Add(2*time.Hour))

		if err := fx.service.Cancel(context.Background(), Principal{UserID: "user-1"}, "res-1"); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}

		if got := fx.reservations.reservations["res-1"].Status; got != persistence.ReservationStatusCancelled {
			t.Fatalf("expected cancelled status, got %s", got)
		}
		if len(fx.auditor.entries) != 1 || fx.auditor.entries[0].Action != audit.ActionReservationCancelled {
			t.Fatalf("expected reservation_cancelled audit entry, got %+v", fx.auditor.entries)
		}
		if len(fx.notifier.cancelled) != 1 {
			t.Fatalf("expected cancellation notification, got %+v", fx.notifier.cancelled)
		}
	})
}

func TestReservationService_ListAll(t *testing.T) {
	fx := newReservationFixture()
	fx.reservations.reservations["res-1"] = persistence.Reservation{
		ID:     "res-1",
		UserID: "user-1",
		RoomID: "room-1",
		Status: persistence.ReservationStatusConfirmed,
	}

	if _, err := fx.service.ListAll(context.Background(), ListAllReservationsParams{
		Principal: Principal{UserID: "user-1"},
	}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}

	reservations, err := fx.service.ListAll(context.Background(), ListAllReservationsParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
	})
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(reservations) != 1 {
		t.Fatalf("expected 1 reservation, got %d", len(reservations))
	}
}

func TestReservationService_Schedule(t *testing.T) {
	seed := func() *reservationFixture {
		fx := newReservationFixture()
		fx.reservations.reservations["past"] = persistence.Reservation{
			ID: "past", UserID: "user-1", RoomID: "room-1",
			Start: testNow.Add(-3 * time.Hour), End: testNow.Add(-2 * time.Hour),
			Status: persistence.ReservationStatusConfirmed,
		}
		fx.reservations.reservations["soon"] = persistence.Reservation{
			ID: "soon", UserID: "user-1", RoomID: "room-1",
			Start: testNow.Add(2 * time.Hour), End: testNow.Add(3 * time.Hour),
			Status: persistence.ReservationStatusConfirmed,
		}
		fx.reservations.reservations["later"] = persistence.Reservation{
			ID: "later", UserID: "user-1", RoomID: "room-1",
			Start: testNow.Add(26 * time.Hour), End: testNow.Add(27 * time.Hour),
			Status: persistence.ReservationStatusConfirmed,
		}
		fx.reservations.reservations["dropped"] = persistence.Reservation{
			ID: "dropped", UserID: "user-1", RoomID: "room-1",
			Start: testNow.Add(5 * time.Hour), End: testNow.Add(6 * time.Hour),
			Status: persistence.ReservationStatusCancelled,
		}
		fx.reservations.reservations["other"] = persistence.Reservation{
			ID: "other", UserID: "user-2", RoomID: "room-1",
			Start: testNow.Add(8 * time.Hour), End: testNow.Add(9 * time.Hour),
			Status: persistence.ReservationStatusConfirmed,
		}
		return fx
	}
	me := Principal{UserID: "user-1"}

	t.Run("upcoming lists confirmed future bookings soonest first", func(t *testing.T) {
		fx := seed()
		reservations, err := fx.service.ListUpcoming(context.Background(), ListScheduleParams{Principal: me})
		if err != nil {
			t.Fatalf("ListUpcoming failed: %v", err)
		}
		if len(reservations) != 2 || reservations[0].ID != "soon" || reservations[1].ID != "later" {
			t.Fatalf("unexpected upcoming reservations: %+v", reservations)
		}
	})

	t.Run("past lists finished bookings regardless of status", func(t *testing.T) {
		fx := seed()
		fx.reservations.reservations["expired"] = persistence.Reservation{
			ID: "expired", UserID: "user-1", RoomID: "room-1",
			Start: testNow.Add(-26 * time.Hour), End: testNow.Add(-25 * time.Hour),
			Status: persistence.ReservationStatusCancelled,
		}
		reservations, err := fx.service.ListPast(context.Background(), ListScheduleParams{Principal: me})
		if err != nil {
			t.Fatalf("ListPast failed: %v", err)
		}
		if len(reservations) != 2 || reservations[0].ID != "past" || reservations[1].ID != "expired" {
			t.Fatalf("unexpected past reservations: %+v", reservations)
		}
	})

	t.Run("limit caps the upcoming page", func(t *testing.T) {
		fx := seed()
		reservations, err := fx.service.ListUpcoming(context.Background(), ListScheduleParams{Principal: me, Limit: 1})
		if err != nil {
			t.Fatalf("ListUpcoming failed: %v", err)
		}
		if len(reservations) != 1 || reservations[0].ID != "soon" {
			t.Fatalf("unexpected page: %+v", reservations)
		}
	})
}

func TestReservationService_CheckAvailability(t *testing.T) {
	t.Run("reports a free slot", func(t *testing.T) {
		fx := newReservationFixture()

		result, err := fx.service.CheckAvailability(context.Background(), CheckAvailabilityParams{
			Principal: Principal{UserID: "user-1"},
			RoomID:    "room-1",
			Start:     testNow.Add(2 * time.Hour),
			End:       testNow.Add(3 * time.Hour),
		})
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if !result.Available || len(result.Conflicts) != 0 {
			t.Fatalf("expected available slot, got %+v", result)
		}
	})

	t.Run("sees new bookings after a write", func(t *testing.T) {
		fx := newReservationFixture()

		params := CheckAvailabilityParams{
			Principal: Principal{UserID: "user-2"},
			RoomID:    "room-1",
			Start:     testNow.Add(2 * time.Hour),
			End:       testNow.Add(3 * time.Hour),
		}

		// Prime the advisory cache, then book the slot. The write must
		// invalidate the cached answer.
		if _, err := fx.service.CheckAvailability(context.Background(), params); err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if _, err := fx.service.Create(context.Background(), CreateReservationParams{
			Principal: Principal{UserID: "user-1"},
			Input:     validInput(),
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		result, err := fx.service.CheckAvailability(context.Background(), params)
		if err != nil {
			t.Fatalf("CheckAvailability failed: %v", err)
		}
		if result.Available || len(result.Conflicts) != 1 {
			t.Fatalf("expected conflict after booking, got %+v", result)
		}
	})

	t.Run("rejects unknown rooms", func(t *testing.T) {
		fx := newReservationFixture()

		_, err := fx.service.CheckAvailability(context.Background(), CheckAvailabilityParams{
			Principal: Principal{UserID: "user-1"},
			RoomID:    "room-missing",
			Start:     testNow.Add(2 * time.Hour),
			End:       testNow.Add(3 * time.Hour),
		})
		if !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
	})
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/audit"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/timerange"
)

// RoomStore captures the persistence operations needed by the service.
type RoomStore interface {
	CreateRoom(ctx context.Context, room persistence.Room) error
	UpdateRoom(ctx context.Context, room persistence.Room) error
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
	ListRooms(ctx context.Context, filter persistence.RoomFilter) ([]persistence.Room, error)
	DeleteRoom(ctx context.Context, id string) error
	CountFutureConfirmedReservations(ctx context.Context, roomID string, reference time.Time) (int, error)
}

// ReservationCalendar exposes the reservation listing the availability view needs.
type ReservationCalendar interface {
	ListForRoom(ctx context.Context, roomID string, from, to time.Time, status string) ([]persistence.Reservation, error)
}

// RoomService orchestrates validation, authorization, and persistence for rooms.
type RoomService struct {
	rooms        RoomStore
	reservations ReservationCalendar
	auditor      audit.Sink
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomStore, reservations ReservationCalendar, auditor audit.Sink, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, reservations, auditor, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomStore, reservations ReservationCalendar, auditor audit.Sink, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if auditor == nil {
		auditor = audit.Discard{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:        rooms,
		reservations: reservations,
		auditor:      auditor,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room for administrators.
// New rooms start active regardless of the input flag.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	record := persistence.Room{
		ID:            s.idGenerator(),
		Name:          strings.TrimSpace(params.Input.Name),
		Location:      strings.TrimSpace(params.Input.Location),
		Capacity:      params.Input.Capacity,
		AvailableFrom: params.Input.AvailableFrom,
		AvailableTo:   params.Input.AvailableTo,
		IsActive:      true,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}

	if err = s.rooms.CreateRoom(ctx, record); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	room = roomFromRecord(record)

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionRoomCreated,
		ActorID:    params.Principal.UserID,
		EntityType: "room",
		EntityID:   room.ID,
		Details:    map[string]any{"name": room.Name},
	})
	return
}

// UpdateRoom validates input and updates an existing room for administrators.
// Deactivation is refused while confirmed reservations still start in the future.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if existing.IsActive && !params.Input.IsActive {
		if err = s.ensureNoUpcomingReservations(ctx, existing.ID); err != nil {
			return
		}
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Location = strings.TrimSpace(params.Input.Location)
	updated.Capacity = params.Input.Capacity
	updated.AvailableFrom = params.Input.AvailableFrom
	updated.AvailableTo = params.Input.AvailableTo
	updated.IsActive = params.Input.IsActive
	updated.UpdatedAt = s.now()

	if err = s.rooms.UpdateRoom(ctx, updated); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	room = roomFromRecord(updated)

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionRoomUpdated,
		ActorID:    params.Principal.UserID,
		EntityType: "room",
		EntityID:   room.ID,
		Details:    map[string]any{"name": room.Name, "is_active": room.IsActive},
	})
	return
}

// DeleteRoom removes a room for administrators, refusing while confirmed
// reservations still start in the future.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) (err error) {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	if _, err = s.rooms.GetRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	if err = s.ensureNoUpcomingReservations(ctx, roomID); err != nil {
		return
	}

	if err = s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionRoomDeleted,
		ActorID:    principal.UserID,
		EntityType: "room",
		EntityID:   roomID,
	})
	return
}

// GetRoom returns a single room for any authenticated user.
func (s *RoomService) GetRoom(ctx context.Context, principal Principal, roomID string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}

	record, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return roomFromRecord(record), nil
}

// ListRooms returns the room catalog, optionally restricted by active flag.
func (s *RoomService) ListRooms(ctx context.Context, params ListRoomsParams) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	records, listErr := s.rooms.ListRooms(ctx, persistence.RoomFilter{Active: params.Active})
	if listErr != nil {
		err = mapRoomRepoError(listErr)
		return
	}

	rooms = make([]Room, 0, len(records))
	for _, record := range records {
		rooms = append(rooms, roomFromRecord(record))
	}
	return
}

// RoomAvailability returns an active room together with its confirmed
// reservations for the day containing date, ordered by start.
func (s *RoomService) RoomAvailability(ctx context.Context, principal Principal, roomID string, date time.Time) (result RoomDayAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil || s.reservations == nil {
		err = fmt.Errorf("room dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "RoomAvailability",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(result.Reservations)).InfoContext(ctx, "availability loaded")
	}()

	var record persistence.Room
	record, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrRoomNotFound
			return
		}
		return
	}
	if !record.IsActive {
		err = ErrRoomInactive
		return
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	records, listErr := s.reservations.ListForRoom(ctx, roomID, dayStart, dayEnd, persistence.ReservationStatusConfirmed)
	if listErr != nil {
		err = mapReservationRepoError(listErr)
		return
	}

	reservations := make([]Reservation, 0, len(records))
	for _, r := range records {
		reservations = append(reservations, reservationFromRecord(r))
	}

	result = RoomDayAvailability{Room: roomFromRecord(record), Reservations: reservations}
	return
}

// AllRoomsAvailability returns every active room together with its confirmed
// reservations for the day containing date, rooms in catalog order.
func (s *RoomService) AllRoomsAvailability(ctx context.Context, principal Principal, date time.Time) (results []RoomDayAvailability, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil || s.reservations == nil {
		err = fmt.Errorf("room dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "AllRoomsAvailability", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(results)).InfoContext(ctx, "availability loaded")
	}()

	active := true
	rooms, listErr := s.rooms.ListRooms(ctx, persistence.RoomFilter{Active: &active})
	if listErr != nil {
		err = mapRoomRepoError(listErr)
		return
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	results = make([]RoomDayAvailability, 0, len(rooms))
	for _, room := range rooms {
		records, dayErr := s.reservations.ListForRoom(ctx, room.ID, dayStart, dayEnd, persistence.ReservationStatusConfirmed)
		if dayErr != nil {
			err = mapReservationRepoError(dayErr)
			return
		}
		reservations := make([]Reservation, 0, len(records))
		for _, r := range records {
			reservations = append(reservations, reservationFromRecord(r))
		}
		results = append(results, RoomDayAvailability{Room: roomFromRecord(room), Reservations: reservations})
	}
	return
}

func (s *RoomService) ensureNoUpcomingReservations(ctx context.Context, roomID string) error {
	count, err := s.rooms.CountFutureConfirmedReservations(ctx, roomID, s.now())
	if err != nil {
		return mapRoomRepoError(err)
	}
	if count > 0 {
		return ErrRoomInUse
	}
	return nil
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		vErr.add("location", "location is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if !validTimeOfDay(input.AvailableFrom) {
		vErr.add("available_from", "must be HH:MM:SS")
	}
	if !validTimeOfDay(input.AvailableTo) {
		vErr.add("available_to", "must be HH:MM:SS")
	}

	return vErr
}

func validTimeOfDay(value string) bool {
	_, err := time.Parse("15:04:05", value)
	return err == nil
}

// withinOperatingHours applies the coarse hour-of-day window check: the start
// hour must be at or after the window's opening hour and the end hour at or
// before its closing hour. Minutes and cross-midnight windows are ignored.
func withinOperatingHours(room persistence.Room, slot timerange.Range) bool {
	fromHour, okFrom := hourOfDay(room.AvailableFrom)
	toHour, okTo := hourOfDay(room.AvailableTo)
	if !okFrom || !okTo {
		return false
	}
	return slot.Start.Hour() >= fromHour && slot.End.Hour() <= toHour
}

func hourOfDay(value string) (int, bool) {
	if len(value) < 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(value[:2])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrRoomNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("name", "a room with this name already exists")
		return vErr
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must be positive")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrRoomInUse
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/audit"
	"github.com/example/room-reservations/internal/availability"
	"github.com/example/room-reservations/internal/notify"
	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/timerange"
)

// MaxReservationDuration caps how long a single booking may run.
const MaxReservationDuration = 4 * time.Hour

// ReservationStore captures the persistence interactions needed by the service.
type ReservationStore interface {
	CreateReservation(ctx context.Context, reservation persistence.Reservation) error
	UpdateReservation(ctx context.Context, reservation persistence.Reservation) error
	GetReservation(ctx context.Context, id string) (persistence.Reservation, error)
	ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error)
	ListForRoom(ctx context.Context, roomID string, from, to time.Time, status string) ([]persistence.Reservation, error)
	SetStatus(ctx context.Context, id string, status string, updatedAt time.Time) error
}

// RoomDirectory exposes room lookup operations.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (persistence.User, error)
}

// ReservationService orchestrates validation, conflict checking, and
// persistence for the reservation lifecycle.
type ReservationService struct {
	reservations ReservationStore
	rooms        RoomDirectory
	users        UserDirectory
	auditor      audit.Sink
	notifier     notify.Notifier
	cache        *availabilityCache
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService wires dependencies for reservation operations.
func NewReservationService(reservations ReservationStore, rooms RoomDirectory, users UserDirectory, auditor audit.Sink, notifier notify.Notifier, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, rooms, users, auditor, notifier, idGenerator, now, nil)
}

// NewReservationServiceWithLogger wires dependencies with a specified logger.
func NewReservationServiceWithLogger(reservations ReservationStore, rooms RoomDirectory, users UserDirectory, auditor audit.Sink, notifier notify.Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if auditor == nil {
		auditor = audit.Discard{}
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		rooms:        rooms,
		users:        users,
		auditor:      auditor,
		notifier:     notifier,
		cache:        newAvailabilityCache(0, 0, now),
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// Create validates the request, runs the advisory conflict check, and
// persists the reservation. The repository re-runs the overlap predicate
// inside the insert transaction; a conflict committed in between surfaces as
// a ConflictError even when the advisory check passed.
func (s *ReservationService) Create(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.rooms == nil {
		err = fmt.Errorf("reservation dependencies not configured")
		return
	}

	input := params.Input
	principal := params.Principal

	logger := s.loggerWith(ctx, "Create",
		"principal_id", principal.UserID,
		"room_id", input.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Purpose) == "" {
		vErr.add("purpose", "purpose is required")
	}
	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var slot timerange.Range
	slot, err = s.validateSlot(input.Start, input.End)
	if err != nil {
		return
	}

	var room persistence.Room
	room, err = s.resolveActiveRoom(ctx, input.RoomID)
	if err != nil {
		return
	}

	if !withinOperatingHours(room, slot) {
		err = ErrOutsideOperatingHours
		return
	}

	var conflicts []ConflictDetail
	conflicts, err = s.detectConflicts(ctx, room.ID, slot, "")
	if err != nil {
		return
	}
	if len(conflicts) > 0 {
		err = &ConflictError{Conflicts: conflicts}
		return
	}

	createdAt := s.now()
	record := persistence.Reservation{
		ID:         s.idGenerator(),
		UserID:     principal.UserID,
		RoomID:     room.ID,
		Start:      input.Start,
		End:        input.End,
		Purpose:    strings.TrimSpace(input.Purpose),
		Department: normalizeOptionalString(input.Department),
		Status:     persistence.ReservationStatusConfirmed,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}

	if err = s.reservations.CreateReservation(ctx, record); err != nil {
		err = s.mapWriteError(ctx, err, room.ID, slot, "")
		return
	}
	s.cache.Invalidate()

	reservation = reservationFromRecord(record)

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionReservationCreated,
		ActorID:    principal.UserID,
		EntityType: "reservation",
		EntityID:   reservation.ID,
		Details: map[string]any{
			"room_id": reservation.RoomID,
			"start":   reservation.Start.Format(time.RFC3339),
			"end":     reservation.End.Format(time.RFC3339),
		},
	})
	s.notify(ctx, logger, notifyConfirmed, reservation, room)
	return
}

// Get returns a reservation visible to the principal. Absent reservations and
// reservations owned by someone else look identical to the caller.
func (s *ReservationService) Get(ctx context.Context, principal Principal, reservationID string) (Reservation, error) {
	if s == nil {
		return Reservation{}, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return Reservation{}, fmt.Errorf("reservation repository not configured")
	}

	record, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, mapReservationRepoError(err)
	}
	if record.UserID != principal.UserID && !principal.IsAdmin {
		return Reservation{}, ErrReservationNotFound
	}
	return reservationFromRecord(record), nil
}

// ListMine returns the caller's reservations, newest start first.
func (s *ReservationService) ListMine(ctx context.Context, params ListMyReservationsParams) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListMine", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	records, listErr := s.reservations.ListReservations(ctx, persistence.ReservationFilter{
		UserID: params.Principal.UserID,
		Status: params.Status,
		Limit:  params.Limit,
	})
	if listErr != nil {
		err = mapReservationRepoError(listErr)
		return
	}

	reservations = make([]Reservation, 0, len(records))
	for _, record := range records {
		reservations = append(reservations, reservationFromRecord(record))
	}
	return
}

// Default page sizes for the self-service schedule views.
const (
	defaultUpcomingLimit = 10
	defaultPastLimit     = 20
)

// ListUpcoming returns the caller's confirmed reservations that have not
// started yet, soonest first.
func (s *ReservationService) ListUpcoming(ctx context.Context, params ListScheduleParams) ([]Reservation, error) {
	now := time.Time{}
	if s != nil && s.now != nil {
		now = s.now()
	}
	return s.listSchedule(ctx, "ListUpcoming", persistence.ReservationFilter{
		UserID:      params.Principal.UserID,
		Status:      persistence.ReservationStatusConfirmed,
		StartsAfter: &now,
		OldestFirst: true,
		Limit:       scheduleLimit(params.Limit, defaultUpcomingLimit),
	})
}

// ListPast returns the caller's reservations that already ended, most recent
// first, regardless of status.
func (s *ReservationService) ListPast(ctx context.Context, params ListScheduleParams) ([]Reservation, error) {
	now := time.Time{}
	if s != nil && s.now != nil {
		now = s.now()
	}
	return s.listSchedule(ctx, "ListPast", persistence.ReservationFilter{
		UserID:     params.Principal.UserID,
		EndsBefore: &now,
		Limit:      scheduleLimit(params.Limit, defaultPastLimit),
	})
}

func (s *ReservationService) listSchedule(ctx context.Context, operation string, filter persistence.ReservationFilter) (reservations []Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil {
		err = fmt.Errorf("reservation repository not configured")
		return
	}

	logger := s.loggerWith(ctx, operation, "principal_id", filter.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(reservations)).InfoContext(ctx, "reservations listed")
	}()

	records, listErr := s.reservations.ListReservations(ctx, filter)
	if listErr != nil {
		err = mapReservationRepoError(listErr)
		return
	}

	reservations = make([]Reservation, 0, len(records))
	for _, record := range records {
		reservations = append(reservations, reservationFromRecord(record))
	}
	return
}

func scheduleLimit(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

// ListAll returns reservations matching the filter for administrators.
func (s *ReservationService) ListAll(ctx context.Context, params ListAllReservationsParams) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, fmt.Errorf("reservation repository not configured")
	}
	if !params.Principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	records, err := s.reservations.ListReservations(ctx, persistence.ReservationFilter{
		UserID:      params.UserID,
		RoomID:      params.RoomID,
		Status:      params.Status,
		StartsAfter: params.StartsAfter,
		EndsBefore:  params.EndsBefore,
		Limit:       params.Limit,
	})
	if err != nil {
		return nil, mapReservationRepoError(err)
	}

	reservations := make([]Reservation, 0, len(records))
	for _, record := range records {
		reservations = append(reservations, reservationFromRecord(record))
	}
	return reservations, nil
}

// Update applies the patch to a confirmed future reservation. A failed
// validation or conflict leaves the stored row untouched; the repository
// runs the overlap guard in the same transaction as the write.
func (s *ReservationService) Update(ctx context.Context, params UpdateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.rooms == nil {
		err = fmt.Errorf("reservation dependencies not configured")
		return
	}

	principal := params.Principal
	logger := s.loggerWith(ctx, "Update",
		"principal_id", principal.UserID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation updated")
	}()

	var existing persistence.Reservation
	existing, err = s.reservations.GetReservation(ctx, params.ReservationID)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	if existing.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrReservationNotFound
		return
	}
	if existing.Status == persistence.ReservationStatusCancelled {
		err = ErrReservationCancelled
		return
	}
	if !existing.Start.After(s.now()) {
		err = ErrPastReservation
		return
	}

	updated := existing
	if params.Patch.Start != nil {
		updated.Start = *params.Patch.Start
	}
	if params.Patch.End != nil {
		updated.End = *params.Patch.End
	}
	if params.Patch.Purpose != nil {
		updated.Purpose = strings.TrimSpace(*params.Patch.Purpose)
	}
	if params.Patch.Department != nil {
		updated.Department = normalizeOptionalString(params.Patch.Department)
	}

	if updated.Purpose == "" {
		vErr := &ValidationError{}
		vErr.add("purpose", "purpose is required")
		err = vErr
		return
	}

	var slot timerange.Range
	slot, err = s.validateSlot(updated.Start, updated.End)
	if err != nil {
		return
	}

	// The room is assumed stable during an update; only its bookable window
	// is re-checked, not the active flag.
	var room persistence.Room
	room, err = s.rooms.GetRoom(ctx, updated.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}
	if !withinOperatingHours(room, slot) {
		err = ErrOutsideOperatingHours
		return
	}

	var conflicts []ConflictDetail
	conflicts, err = s.detectConflicts(ctx, room.ID, slot, existing.ID)
	if err != nil {
		return
	}
	if len(conflicts) > 0 {
		err = &ConflictError{Conflicts: conflicts}
		return
	}

	updated.UpdatedAt = s.now()
	if err = s.reservations.UpdateReservation(ctx, updated); err != nil {
		err = s.mapWriteError(ctx, err, room.ID, slot, existing.ID)
		return
	}
	s.cache.Invalidate()

	reservation = reservationFromRecord(updated)

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionReservationUpdated,
		ActorID:    principal.UserID,
		EntityType: "reservation",
		EntityID:   reservation.ID,
		Details: map[string]any{
			"room_id": reservation.RoomID,
			"start":   reservation.Start.Format(time.RFC3339),
			"end":     reservation.End.Format(time.RFC3339),
		},
	})
	s.notify(ctx, logger, notifyUpdated, reservation, room)
	return
}

// Cancel marks a confirmed future reservation as cancelled. Cancellation is
// terminal; the row is never deleted.
func (s *ReservationService) Cancel(ctx context.Context, principal Principal, reservationID string) (err error) {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return fmt.Errorf("reservation repository not configured")
	}

	logger := s.loggerWith(ctx, "Cancel",
		"principal_id", principal.UserID,
		"reservation_id", reservationID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	existing, getErr := s.reservations.GetReservation(ctx, reservationID)
	if getErr != nil {
		err = mapReservationRepoError(getErr)
		return
	}
	if existing.UserID != principal.UserID && !principal.IsAdmin {
		err = ErrReservationNotFound
		return
	}
	if existing.Status == persistence.ReservationStatusCancelled {
		err = ErrReservationCancelled
		return
	}
	if !existing.Start.After(s.now()) {
		err = ErrPastReservation
		return
	}

	cancelledAt := s.now()
	if err = s.reservations.SetStatus(ctx, existing.ID, persistence.ReservationStatusCancelled, cancelledAt); err != nil {
		err = mapReservationRepoError(err)
		return
	}
	s.cache.Invalidate()

	existing.Status = persistence.ReservationStatusCancelled
	existing.UpdatedAt = cancelledAt
	cancelled := reservationFromRecord(existing)

	s.auditor.Record(ctx, audit.Entry{
		Action:     audit.ActionReservationCancelled,
		ActorID:    principal.UserID,
		EntityType: "reservation",
		EntityID:   cancelled.ID,
		Details: map[string]any{
			"room_id": cancelled.RoomID,
			"start":   cancelled.Start.Format(time.RFC3339),
			"end":     cancelled.End.Format(time.RFC3339),
		},
	})

	if s.rooms != nil {
		if room, roomErr := s.rooms.GetRoom(ctx, cancelled.RoomID); roomErr == nil {
			s.notify(ctx, logger, notifyCancelled, cancelled, room)
		}
	}
	return
}

// CheckAvailability reports whether the slot is free of confirmed bookings.
// The answer is advisory only; creation re-checks inside its transaction.
func (s *ReservationService) CheckAvailability(ctx context.Context, params CheckAvailabilityParams) (result AvailabilityResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.rooms == nil {
		err = fmt.Errorf("reservation dependencies not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckAvailability",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("available", result.Available).InfoContext(ctx, "availability checked")
	}()

	var slot timerange.Range
	slot, err = timerange.New(params.Start, params.End)
	if err != nil {
		err = ErrInvalidRange
		return
	}

	if _, err = s.resolveActiveRoom(ctx, params.RoomID); err != nil {
		return
	}

	var conflicts []ConflictDetail
	conflicts, err = s.detectConflicts(ctx, params.RoomID, slot, "")
	if err != nil {
		return
	}

	result = AvailabilityResult{Available: len(conflicts) == 0, Conflicts: conflicts}
	return
}

// validateSlot enforces the booking window rules shared by Create and Update.
func (s *ReservationService) validateSlot(start, end time.Time) (timerange.Range, error) {
	slot, err := timerange.New(start, end)
	if err != nil {
		return timerange.Range{}, ErrInvalidRange
	}
	if !start.After(s.now()) {
		return timerange.Range{}, ErrInvalidRange
	}
	if slot.Duration() > MaxReservationDuration {
		return timerange.Range{}, ErrDurationExceeded
	}
	return slot, nil
}

func (s *ReservationService) resolveActiveRoom(ctx context.Context, roomID string) (persistence.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Room{}, ErrRoomNotFound
		}
		return persistence.Room{}, err
	}
	if !room.IsActive {
		return persistence.Room{}, ErrRoomInactive
	}
	return room, nil
}

// detectConflicts runs the advisory overlap check against the confirmed
// reservations currently stored for the room, excluding excludeID.
func (s *ReservationService) detectConflicts(ctx context.Context, roomID string, slot timerange.Range, excludeID string) ([]ConflictDetail, error) {
	key := availabilityCacheKey(roomID, excludeID, slot.Start, slot.End)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	records, err := s.reservations.ListForRoom(ctx, roomID, slot.Start, slot.End, persistence.ReservationStatusConfirmed)
	if err != nil {
		return nil, mapReservationRepoError(err)
	}

	existing := make([]availability.Reservation, 0, len(records))
	for _, record := range records {
		if record.ID == excludeID {
			continue
		}
		stored, rangeErr := timerange.New(record.Start, record.End)
		if rangeErr != nil {
			continue
		}
		existing = append(existing, availability.Reservation{
			ID:     record.ID,
			RoomID: record.RoomID,
			UserID: record.UserID,
			Range:  stored,
			Status: record.Status,
		})
	}

	conflicts := availability.DetectConflicts(existing, roomID, slot)
	details := make([]ConflictDetail, 0, len(conflicts))
	for _, conflict := range conflicts {
		details = append(details, ConflictDetail{
			ReservationID: conflict.ReservationID,
			RoomID:        conflict.RoomID,
			Start:         conflict.Range.Start,
			End:           conflict.Range.End,
		})
	}
	if len(details) == 0 {
		details = nil
	}

	s.cache.Store(key, details)
	return details, nil
}

// mapWriteError translates repository failures from reservation writes. A
// transactional overlap rejection is resolved into the conflicting bookings
// so callers see the same shape as the advisory check.
func (s *ReservationService) mapWriteError(ctx context.Context, err error, roomID string, slot timerange.Range, excludeID string) error {
	if errors.Is(err, persistence.ErrConflict) {
		s.cache.Invalidate()
		conflicts, listErr := s.detectConflicts(ctx, roomID, slot, excludeID)
		if listErr != nil {
			conflicts = nil
		}
		return &ConflictError{Conflicts: conflicts}
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrRoomNotFound
	}
	return mapReservationRepoError(err)
}

type notifyKind int

const (
	notifyConfirmed notifyKind = iota
	notifyUpdated
	notifyCancelled
)

// notify delivers the lifecycle notification after commit. Recipient lookup
// failures are logged and dropped; the booking already succeeded.
func (s *ReservationService) notify(ctx context.Context, logger *slog.Logger, kind notifyKind, reservation Reservation, room persistence.Room) {
	recipient := notify.Recipient{UserID: reservation.UserID}
	if s.users != nil {
		user, err := s.users.GetUser(ctx, reservation.UserID)
		if err != nil {
			logger.WarnContext(ctx, "skipping notification, recipient lookup failed", "user_id", reservation.UserID, "error", err)
			return
		}
		recipient.Name = user.Name
		recipient.Email = user.Email
	}

	payload := notify.Reservation{
		ID:      reservation.ID,
		RoomID:  reservation.RoomID,
		Start:   reservation.Start,
		End:     reservation.End,
		Purpose: reservation.Purpose,
	}
	display := notify.Room{ID: room.ID, Name: room.Name, Location: room.Location}

	switch kind {
	case notifyConfirmed:
		s.notifier.ReservationConfirmed(ctx, payload, recipient, display)
	case notifyUpdated:
		s.notifier.ReservationUpdated(ctx, payload, recipient, display)
	case notifyCancelled:
		s.notifier.ReservationCancelled(ctx, payload, recipient, display)
	}
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrReservationNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidRange
	}
	return err
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/application"
)

type roomService interface {
	GetRoom(ctx context.Context, principal application.Principal, roomID string) (application.Room, error)
	ListRooms(ctx context.Context, params application.ListRoomsParams) ([]application.Room, error)
	RoomAvailability(ctx context.Context, principal application.Principal, roomID string, date time.Time) (application.RoomDayAvailability, error)
	AllRoomsAvailability(ctx context.Context, principal application.Principal, date time.Time) ([]application.RoomDayAvailability, error)
}

type availabilityService interface {
	CheckAvailability(ctx context.Context, params application.CheckAvailabilityParams) (application.AvailabilityResult, error)
}

type RoomHandler struct {
	rooms        roomService
	availability availabilityService
	responder    responder
	logger       *slog.Logger
}

func NewRoomHandler(rooms roomService, availability availabilityService, logger *slog.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{rooms: rooms, availability: availability, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, attrs...)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListRoomsParams{Principal: principal}
	switch strings.ToLower(r.URL.Query().Get("active")) {
	case "true":
		active := true
		params.Active = &active
	case "false":
		active := false
		params.Active = &active
	}

	rooms, err := h.rooms.ListRooms(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list rooms", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomListResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	room, err := h.rooms.GetRoom(r.Context(), principal, roomID)
	if err != nil {
		h.log(r.Context(), "Get", "room_id", roomID).ErrorContext(r.Context(), "failed to load room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

// Availability lists a room's confirmed bookings for a single calendar day.
func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	rawDate := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateFormat)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Availability", "room_id", roomID, "date", rawDate)

	result, err := h.rooms.RoomAvailability(r.Context(), principal, roomID, date)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load room availability", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dayAvailabilityResponse{
		Room:         toRoomDTO(result.Room),
		Date:         rawDate,
		Reservations: toReservationDTOs(result.Reservations),
	})
}

// AllAvailability lists every active room with its confirmed bookings for a
// single calendar day.
func (h *RoomHandler) AllAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rawDate := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateFormat)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "AllAvailability", "date", rawDate)

	results, err := h.rooms.AllRoomsAvailability(r.Context(), principal, date)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load availability", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	rooms := make([]roomScheduleDTO, 0, len(results))
	for _, result := range results {
		rooms = append(rooms, roomScheduleDTO{
			Room:         toRoomDTO(result.Room),
			Reservations: toReservationDTOs(result.Reservations),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, allAvailabilityResponse{Date: rawDate, Rooms: rooms})
}

// CheckAvailability runs the advisory conflict probe for a proposed slot. The
// answer reflects the bookings visible at query time and is not a hold.
func (h *RoomHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.availability == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	var req checkAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "CheckAvailability", "room_id", roomID)

	result, err := h.availability.CheckAvailability(r.Context(), application.CheckAvailabilityParams{
		Principal: principal,
		RoomID:    roomID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Available: result.Available,
		Conflicts: toConflictDTOs(result.Conflicts),
	})
}

type checkAvailabilityRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type availabilityResponse struct {
	Available bool          `json:"available"`
	Conflicts []conflictDTO `json:"conflicts,omitempty"`
}

type roomListResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type allAvailabilityResponse struct {
	Date  string            `json:"date"`
	Rooms []roomScheduleDTO `json:"rooms"`
}

type roomScheduleDTO struct {
	Room         roomDTO          `json:"room"`
	Reservations []reservationDTO `json:"reservations"`
}

type dayAvailabilityResponse struct {
	Room         roomDTO          `json:"room"`
	Date         string           `json:"date"`
	Reservations []reservationDTO `json:"reservations"`
}

type roomDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Location      string `json:"location"`
	Capacity      int    `json:"capacity"`
	AvailableFrom string `json:"available_from"`
	AvailableTo   string `json:"available_to"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toRoomDTO(room application.Room) roomDTO {
	return roomDTO{
		ID:            room.ID,
		Name:          room.Name,
		Location:      room.Location,
		Capacity:      room.Capacity,
		AvailableFrom: room.AvailableFrom,
		AvailableTo:   room.AvailableTo,
		IsActive:      room.IsActive,
		CreatedAt:     room.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     room.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	if len(rooms) == 0 {
		return nil
	}
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

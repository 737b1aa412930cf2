package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/persistence"
)

type roomAdminService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (application.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error
	ListRooms(ctx context.Context, params application.ListRoomsParams) ([]application.Room, error)
}

type reservationAdminService interface {
	ListAll(ctx context.Context, params application.ListAllReservationsParams) ([]application.Reservation, error)
}

type userAdminService interface {
	ListUsers(ctx context.Context, params application.ListUsersParams) ([]application.User, error)
	UpdateUserRole(ctx context.Context, params application.UpdateUserRoleParams) (application.User, error)
}

type reportingService interface {
	ListAuditLogs(ctx context.Context, principal application.Principal, filter persistence.AuditFilter) ([]persistence.AuditLog, error)
	AuditStats(ctx context.Context, principal application.Principal) (persistence.AuditStats, error)
	ClearAuditLogs(ctx context.Context, principal application.Principal) (int, error)
	Statistics(ctx context.Context, principal application.Principal, from, to *time.Time) (persistence.Statistics, error)
}

// AdminHandler serves the administrator surface. Every service call behind it
// re-checks the admin role; the handler only shapes requests and responses.
type AdminHandler struct {
	rooms        roomAdminService
	reservations reservationAdminService
	users        userAdminService
	reports      reportingService
	responder    responder
	logger       *slog.Logger
}

func NewAdminHandler(rooms roomAdminService, reservations reservationAdminService, users userAdminService, reports reportingService, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{
		rooms:        rooms,
		reservations: reservations,
		users:        users,
		reports:      reports,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *AdminHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AdminHandler", operation, attrs...)
}

func (h *AdminHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	rooms, err := h.rooms.ListRooms(r.Context(), application.ListRoomsParams{Principal: principal})
	if err != nil {
		h.log(r.Context(), "ListRooms").ErrorContext(r.Context(), "failed to list rooms", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomListResponse{Rooms: toRoomDTOs(rooms)})
}

func (h *AdminHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "CreateRoom", "name", req.Name)

	room, err := h.rooms.CreateRoom(r.Context(), application.CreateRoomParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("room_id", room.ID).InfoContext(r.Context(), "room created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRoomDTO(room))
}

func (h *AdminHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "UpdateRoom", "room_id", roomID)

	room, err := h.rooms.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

func (h *AdminHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "DeleteRoom", "room_id", roomID)

	if err := h.rooms.DeleteRoom(r.Context(), principal, roomID); err != nil {
		logger.ErrorContext(r.Context(), "failed to delete room", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "room deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reservations == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	params := application.ListAllReservationsParams{
		Principal: principal,
		Status:    query.Get("status"),
		RoomID:    query.Get("room_id"),
		UserID:    query.Get("user_id"),
		Limit:     parseLimit(query.Get("limit")),
	}
	var err error
	if params.StartsAfter, err = parseOptionalTime(query.Get("starts_after")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}
	if params.EndsBefore, err = parseOptionalTime(query.Get("ends_before")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}

	reservations, err := h.reservations.ListAll(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "ListReservations").ErrorContext(r.Context(), "failed to list reservations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: toReservationDTOs(reservations)})
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	users, err := h.users.ListUsers(r.Context(), application.ListUsersParams{
		Principal:  principal,
		Role:       query.Get("role"),
		Department: query.Get("department"),
		Limit:      parseLimit(query.Get("limit")),
	})
	if err != nil {
		h.log(r.Context(), "ListUsers").ErrorContext(r.Context(), "failed to list users", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userListResponse{Users: toUserDTOs(users)})
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	var req updateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "UpdateUserRole", "user_id", userID, "role", req.Role)

	user, err := h.users.UpdateUserRole(r.Context(), application.UpdateUserRoleParams{
		Principal: principal,
		UserID:    userID,
		Role:      req.Role,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update user role", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "user role updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toUserDTO(user))
}

func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	filter := persistence.AuditFilter{
		Action:     query.Get("action"),
		EntityType: query.Get("entity_type"),
		ActorID:    query.Get("actor_id"),
		Limit:      parseLimit(query.Get("limit")),
	}
	var err error
	if filter.From, err = parseOptionalTime(query.Get("from")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}
	if filter.To, err = parseOptionalTime(query.Get("to")); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}

	entries, err := h.reports.ListAuditLogs(r.Context(), principal, filter)
	if err != nil {
		h.log(r.Context(), "ListAuditLogs").ErrorContext(r.Context(), "failed to list audit logs", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, auditLogListResponse{Logs: toAuditLogDTOs(entries)})
}

func (h *AdminHandler) AuditStats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	stats, err := h.reports.AuditStats(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "AuditStats").ErrorContext(r.Context(), "failed to compute audit stats", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, auditStatsResponse{
		TotalEntries: stats.TotalEntries,
		TodayEntries: stats.TodayEntries,
		ActionCounts: stats.ActionCounts,
	})
}

func (h *AdminHandler) ClearAuditLogs(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "ClearAuditLogs")

	cleared, err := h.reports.ClearAuditLogs(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to clear audit logs", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("cleared", cleared).InfoContext(r.Context(), "audit logs cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, clearAuditLogsResponse{Cleared: cleared})
}

func (h *AdminHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}
	to, err := parseOptionalTime(query.Get("to"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
		return
	}

	stats, err := h.reports.Statistics(r.Context(), principal, from, to)
	if err != nil {
		h.log(r.Context(), "Statistics").ErrorContext(r.Context(), "failed to compute statistics", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toStatisticsResponse(stats))
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type roomRequest struct {
	Name          string `json:"name"`
	Location      string `json:"location"`
	Capacity      int    `json:"capacity"`
	AvailableFrom string `json:"available_from"`
	AvailableTo   string `json:"available_to"`
	IsActive      bool   `json:"is_active"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Name:          r.Name,
		Location:      r.Location,
		Capacity:      r.Capacity,
		AvailableFrom: r.AvailableFrom,
		AvailableTo:   r.AvailableTo,
		IsActive:      r.IsActive,
	}
}

type updateUserRoleRequest struct {
	Role string `json:"role"`
}

type userListResponse struct {
	Users []userDTO `json:"users"`
}

type auditLogListResponse struct {
	Logs []auditLogDTO `json:"logs"`
}

type auditLogDTO struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	RecordedAt string         `json:"recorded_at"`
}

func toAuditLogDTOs(entries []persistence.AuditLog) []auditLogDTO {
	if len(entries) == 0 {
		return nil
	}
	out := make([]auditLogDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditLogDTO{
			ID:         entry.ID,
			Action:     entry.Action,
			ActorID:    entry.ActorID,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Details:    entry.Details,
			RecordedAt: entry.RecordedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

type clearAuditLogsResponse struct {
	Cleared int `json:"cleared"`
}

type auditStatsResponse struct {
	TotalEntries int            `json:"total_entries"`
	TodayEntries int            `json:"today_entries"`
	ActionCounts map[string]int `json:"action_counts"`
}

type statisticsResponse struct {
	TotalReservations     int                  `json:"total_reservations"`
	ConfirmedReservations int                  `json:"confirmed_reservations"`
	TotalUsers            int                  `json:"total_users"`
	ActiveRooms           int                  `json:"active_rooms"`
	RoomUtilization       []roomUtilizationDTO `json:"room_utilization"`
	PeakHours             []peakHourDTO        `json:"peak_hours"`
}

type roomUtilizationDTO struct {
	RoomID     string  `json:"room_id"`
	RoomName   string  `json:"room_name"`
	Bookings   int     `json:"bookings"`
	TotalHours float64 `json:"total_hours"`
}

type peakHourDTO struct {
	Hour     int `json:"hour"`
	Bookings int `json:"bookings"`
}

func toStatisticsResponse(stats persistence.Statistics) statisticsResponse {
	resp := statisticsResponse{
		TotalReservations:     stats.TotalReservations,
		ConfirmedReservations: stats.ConfirmedReservations,
		TotalUsers:            stats.TotalUsers,
		ActiveRooms:           stats.ActiveRooms,
	}
	for _, row := range stats.RoomUtilization {
		resp.RoomUtilization = append(resp.RoomUtilization, roomUtilizationDTO{
			RoomID:     row.RoomID,
			RoomName:   row.RoomName,
			Bookings:   row.Bookings,
			TotalHours: row.TotalHours,
		})
	}
	for _, row := range stats.PeakHours {
		resp.PeakHours = append(resp.PeakHours, peakHourDTO{Hour: row.Hour, Bookings: row.Bookings})
	}
	return resp
}

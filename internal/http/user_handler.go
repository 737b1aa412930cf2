package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/room-reservations/internal/application"
	"github.com/example/room-reservations/internal/persistence"
)

type profileService interface {
	GetProfile(ctx context.Context, principal application.Principal) (application.User, error)
	UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.User, error)
	MyStatistics(ctx context.Context, principal application.Principal) (persistence.UserStatistics, error)
}

type scheduleService interface {
	ListUpcoming(ctx context.Context, params application.ListScheduleParams) ([]application.Reservation, error)
	ListPast(ctx context.Context, params application.ListScheduleParams) ([]application.Reservation, error)
}

// UserHandler serves the self-service account surface: the caller's profile,
// schedule views, and booking statistics.
type UserHandler struct {
	profiles  profileService
	schedule  scheduleService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(profiles profileService, schedule scheduleService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{profiles: profiles, schedule: schedule, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	user, err := h.profiles.GetProfile(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "GetProfile").ErrorContext(r.Context(), "failed to load profile", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{User: toUserDTO(user)})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "UpdateProfile")

	user, err := h.profiles.UpdateProfile(r.Context(), application.UpdateProfileParams{
		Principal:  principal,
		Name:       req.Name,
		Department: req.Department,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update profile", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "profile updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{User: toUserDTO(user)})
}

func (h *UserHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	h.listSchedule(w, r, "ListUpcoming", func(ctx context.Context, params application.ListScheduleParams) ([]application.Reservation, error) {
		return h.schedule.ListUpcoming(ctx, params)
	})
}

func (h *UserHandler) ListPast(w http.ResponseWriter, r *http.Request) {
	h.listSchedule(w, r, "ListPast", func(ctx context.Context, params application.ListScheduleParams) ([]application.Reservation, error) {
		return h.schedule.ListPast(ctx, params)
	})
}

func (h *UserHandler) listSchedule(w http.ResponseWriter, r *http.Request, operation string, list func(context.Context, application.ListScheduleParams) ([]application.Reservation, error)) {
	if h == nil || h.schedule == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservations, err := list(r.Context(), application.ListScheduleParams{
		Principal: principal,
		Limit:     parseLimit(r.URL.Query().Get("limit")),
	})
	if err != nil {
		h.log(r.Context(), operation).ErrorContext(r.Context(), "failed to list reservations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: toReservationDTOs(reservations)})
}

func (h *UserHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	stats, err := h.profiles.MyStatistics(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Statistics").ErrorContext(r.Context(), "failed to load user statistics", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := userStatisticsResponse{
		TotalReservations:     stats.TotalReservations,
		ConfirmedReservations: stats.ConfirmedReservations,
		CancelledReservations: stats.CancelledReservations,
		TotalHours:            stats.TotalHours,
	}
	if stats.MostUsedRoom != nil {
		resp.MostUsedRoom = &mostUsedRoomDTO{
			RoomID:   stats.MostUsedRoom.RoomID,
			RoomName: stats.MostUsedRoom.RoomName,
			Bookings: stats.MostUsedRoom.Bookings,
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type updateProfileRequest struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
}

type profileResponse struct {
	User userDTO `json:"user"`
}

type userStatisticsResponse struct {
	TotalReservations     int              `json:"total_reservations"`
	ConfirmedReservations int              `json:"confirmed_reservations"`
	CancelledReservations int              `json:"cancelled_reservations"`
	TotalHours            float64          `json:"total_hours"`
	MostUsedRoom          *mostUsedRoomDTO `json:"most_used_room,omitempty"`
}

type mostUsedRoomDTO struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	Bookings int    `json:"bookings"`
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/example/room-reservations/internal/application"
)

type reservationService interface {
	Create(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	Get(ctx context.Context, principal application.Principal, reservationID string) (application.Reservation, error)
	ListMine(ctx context.Context, params application.ListMyReservationsParams) ([]application.Reservation, error)
	Update(ctx context.Context, params application.UpdateReservationParams) (application.Reservation, error)
	Cancel(ctx context.Context, principal application.Principal, reservationID string) error
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createReservationRequest
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
	logger := h.log(r.Context(), "Create", "room_id", req.RoomID)

	reservation, err := h.service.Create(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input: application.ReservationInput{
			RoomID:     req.RoomID,
			Start:      start,
			End:        end,
			Purpose:    req.Purpose,
			Department: req.Department,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to create reservation", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	reservations, err := h.service.ListMine(r.Context(), application.ListMyReservationsParams{
		Principal: principal,
		Status:    query.Get("status"),
		Limit:     parseLimit(query.Get("limit")),
	})
	if err != nil {
		h.log(r.Context(), "ListMine").ErrorContext(r.Context(), "failed to list reservations", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: toReservationDTOs(reservations)})
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.Get(r.Context(), principal, reservationID)
	if err != nil {
		h.log(r.Context(), "Get", "reservation_id", reservationID).ErrorContext(r.Context(), "failed to load reservation", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req updateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch := application.ReservationPatch{Purpose: req.Purpose, Department: req.Department}
	if req.Start != nil {
		start, err := time.Parse(time.RFC3339, *req.Start)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
			return
		}
		patch.Start = &start
	}
	if req.End != nil {
		end, err := time.Parse(time.RFC3339, *req.End)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimeFormat)
			return
		}
		patch.End = &end
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "reservation_id", reservationID)

	reservation, err := h.service.Update(r.Context(), application.UpdateReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
		Patch:         patch,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to update reservation", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "reservation_id", reservationID)

	if err := h.service.Cancel(r.Context(), principal, reservationID); err != nil {
		logger.ErrorContext(r.Context(), "failed to cancel reservation", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

type createReservationRequest struct {
	RoomID     string  `json:"room_id"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Purpose    string  `json:"purpose"`
	Department *string `json:"department"`
}

type updateReservationRequest struct {
	Start      *string `json:"start"`
	End        *string `json:"end"`
	Purpose    *string `json:"purpose"`
	Department *string `json:"department"`
}

type reservationListResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	RoomID     string  `json:"room_id"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	Purpose    string  `json:"purpose"`
	Department *string `json:"department,omitempty"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:         reservation.ID,
		UserID:     reservation.UserID,
		RoomID:     reservation.RoomID,
		Start:      reservation.Start.UTC().Format(time.RFC3339Nano),
		End:        reservation.End.UTC().Format(time.RFC3339Nano),
		Purpose:    reservation.Purpose,
		Department: reservation.Department,
		Status:     reservation.Status,
		CreatedAt:  reservation.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/application"
)

var (
	errBadRequestBody       = errors.New("invalid request body")
	errInvalidRoomID        = errors.New("invalid room id")
	errInvalidReservationID = errors.New("invalid reservation id")
	errInvalidUserID        = errors.New("invalid user id")
	errMissingAccessToken   = errors.New("authentication required")
	errInvalidTimeFormat    = errors.New("start and end must be RFC 3339 timestamps")
	errInvalidDateFormat    = errors.New("date must be formatted YYYY-MM-DD")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application errors into API responses.
// Reservation permission failures surface as 404, never 403, so callers
// cannot probe for foreign reservations.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "FORBIDDEN",
			Message:   "You do not have permission to perform this action.",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "INVALID_CREDENTIALS",
			Message:   "Email or password is incorrect.",
		})
	case errors.Is(err, application.ErrRoomNotFound), errors.Is(err, application.ErrRoomInactive):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "Room not found or inactive."})
	case errors.Is(err, application.ErrReservationNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "Reservation not found."})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "The requested resource was not found."})
	case errors.Is(err, application.ErrRoomInUse):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ROOM_IN_USE",
			Message:   "The room has upcoming reservations.",
		})
	case errors.Is(err, application.ErrInvalidRange):
		r.unprocessable(ctx, w, "time", "start must be in the future and before end")
	case errors.Is(err, application.ErrDurationExceeded):
		r.unprocessable(ctx, w, "time", "reservations may not exceed 4 hours")
	case errors.Is(err, application.ErrOutsideOperatingHours):
		r.unprocessable(ctx, w, "time", "the requested slot is outside the room's operating hours")
	case errors.Is(err, application.ErrPastReservation):
		r.unprocessable(ctx, w, "reservation", "the reservation has already started")
	case errors.Is(err, application.ErrReservationCancelled):
		r.unprocessable(ctx, w, "reservation", "the reservation is cancelled")
	default:
		var cErr *application.ConflictError
		if errors.As(err, &cErr) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode: "RESERVATION_CONFLICT",
				Message:   "The requested slot overlaps existing reservations.",
				Conflicts: toConflictDTOs(cErr.Conflicts),
			})
			return
		}

		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "The request contains invalid fields.",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "An internal error occurred."})
	}
}

func (r responder) unprocessable(ctx context.Context, w http.ResponseWriter, field, message string) {
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
		Message: "The request contains invalid fields.",
		Errors:  map[string]string{field: message},
	})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	ReservationID string `json:"reservation_id"`
	RoomID        string `json:"room_id"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func toConflictDTOs(conflicts []application.ConflictDetail) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(conflicts))
	for _, conflict := range conflicts {
		out = append(out, conflictDTO{
			ReservationID: conflict.ReservationID,
			RoomID:        conflict.RoomID,
			Start:         conflict.Start.UTC().Format(time.RFC3339Nano),
			End:           conflict.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

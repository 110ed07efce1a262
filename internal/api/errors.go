package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"hallbooking/internal/hall"
	"hallbooking/internal/reservation"
)

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	ConflictingIDs []string `json:"conflictingIds,omitempty"`
}

// RetryAfterSeconds is advertised on 503 CONTENTION responses.
const RetryAfterSeconds = 1

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, APIError{Code: code, Message: message})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteServiceError maps domain errors onto the HTTP error envelope. Anything
// unrecognised is a 500 and its message is not exposed.
func WriteServiceError(w http.ResponseWriter, err error) {
	var (
		verr       reservation.ValidationError
		conflict   reservation.ConflictError
		invalid    reservation.InvalidStateError
		forbidden  reservation.ForbiddenError
		notFound   reservation.NotFoundError
		contention reservation.ContentionError
		inUse      hall.InUseError
		fieldErrs  validator.ValidationErrors
	)

	switch {
	case errors.As(err, &verr):
		WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", verr.Error())
	case errors.As(err, &fieldErrs):
		WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", fieldErrs.Error())
	case errors.As(err, &conflict):
		writeEnvelope(w, http.StatusConflict, APIError{
			Code:           "RESERVATION_CONFLICT",
			Message:        conflict.Error(),
			ConflictingIDs: conflict.IDs(),
		})
	case errors.As(err, &invalid):
		WriteError(w, http.StatusConflict, "INVALID_STATE_TRANSITION", invalid.Error())
	case errors.As(err, &forbidden):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", forbidden.Message)
	case errors.As(err, &notFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", notFound.Error())
	case errors.Is(err, hall.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "hall not found")
	case errors.As(err, &contention):
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
		WriteError(w, http.StatusServiceUnavailable, "CONTENTION", "hall is busy, retry shortly")
	case errors.As(err, &inUse):
		WriteError(w, http.StatusConflict, "HALL_IN_USE", inUse.Error())
	case errors.Is(err, hall.ErrDuplicateName):
		WriteError(w, http.StatusConflict, "HALL_NAME_TAKEN", "hall name already in use")
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeEnvelope(w http.ResponseWriter, status int, e APIError) {
	WriteJSON(w, status, ErrorEnvelope{Error: e})
}

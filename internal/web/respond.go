package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"bakery-pos/internal/logger"
	"bakery-pos/internal/models"
	"bakery-pos/internal/validation"
)

const maxBodyBytes = 1 << 20

// ErrBadRequest wraps body decoding failures
var ErrBadRequest = errors.New("bad request")

// Decode reads a JSON request body into v, rejecting unknown fields
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON format: %v", ErrBadRequest, err)
	}
	return nil
}

// WriteJSON writes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSON(w, status, map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": logger.RequestIDFromContext(r.Context()),
	})
}

// WriteValidation writes a 422 with field level messages
func WriteValidation(w http.ResponseWriter, r *http.Request, ve *validation.Error) {
	WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":      ve.Error(),
		"errors":     ve.Fields,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": logger.RequestIDFromContext(r.Context()),
	})
}

// Fail maps err to a response. Unexpected errors are logged and reported
// as 500 without detail.
func Fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, action string, err error) {
	if ve, ok := validation.As(err); ok {
		WriteValidation(w, r, ve)
		return
	}

	switch {
	case errors.Is(err, ErrBadRequest):
		WriteError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		WriteError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrForbidden):
		WriteError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrConflict):
		WriteError(w, r, http.StatusConflict, err.Error())
	default:
		log.Error(action, "Request failed", logger.RequestIDFromContext(r.Context()), err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		WriteError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

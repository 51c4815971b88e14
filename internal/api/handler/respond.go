// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"streamcart-orders/internal/api/types"
	"streamcart-orders/internal/util" // For custom errors
)

// DefaultTimeout bounds the handling of a single request.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes limits request bodies read by handlers.
const maxBodyBytes = 1 << 20

// responder holds the JSON response helpers shared by all handlers.
type responder struct {
	logger *slog.Logger
}

// Helper function to send JSON responses.
func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h responder) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := http.StatusInternalServerError
	body := types.ErrorResponse{Error: "Internal server error"}

	var validationErr *util.ValidationError
	var conflictErr *util.ConflictError

	switch {
	case errors.As(err, &validationErr):
		statusCode = http.StatusBadRequest
		body = types.ErrorResponse{Error: validationErr.Message, Field: validationErr.Field}
	case errors.As(err, &conflictErr):
		statusCode = http.StatusBadRequest
		body = types.ErrorResponse{Error: conflictErr.Error(), Field: conflictErr.Field}
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		body.Error = "Invalid request body"
	case util.IsError(err, util.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		body.Error = "Invalid username or password"
	case util.IsError(err, util.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		body.Error = "Authentication required"
	case util.IsError(err, util.ErrForbidden):
		statusCode = http.StatusForbidden
		body.Error = "Access denied"
	case util.IsError(err, util.ErrNotFound):
		statusCode = http.StatusNotFound
		body.Error = "Resource not found"
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled service error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
	}

	h.respondWithJSON(w, statusCode, body)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return util.ErrInvalidInput
	}
	return nil
}

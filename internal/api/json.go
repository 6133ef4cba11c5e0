package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/apperr"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.ErrInvalidInput:
		return http.StatusBadRequest
	case apperr.ErrPathOutsideVault:
		return http.StatusForbidden
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrAlreadyExists:
		return http.StatusConflict
	case apperr.ErrMalformedSection:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err with the status of its kind. Server-side failures are
// logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}

type validatable interface {
	Validate() error
}

// decodeJSON reads a size-limited JSON body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": verrs})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

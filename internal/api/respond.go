package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ggproduction/onboarding/internal/ai"
	"github.com/ggproduction/onboarding/internal/apperr"
	"github.com/ggproduction/onboarding/internal/quizgen"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err onto a status code. Server-side failures are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	} else {
		slog.Debug("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, quizgen.ErrBudgetExhausted):
		return http.StatusTooManyRequests, quizgen.ErrBudgetExhausted.Error()
	case errors.Is(err, quizgen.ErrInvalidOutput):
		return http.StatusBadGateway, quizgen.ErrInvalidOutput.Error()
	case errors.Is(err, ai.ErrNoProvider):
		return http.StatusServiceUnavailable, "no AI provider configured"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.InvalidInput("body", "must be a valid JSON object")
	}
	return nil
}

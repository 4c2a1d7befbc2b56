package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"asrd/internal/backend"
	"asrd/internal/manager"
	"asrd/internal/session"
	"asrd/pkg/types"
)

var (
	errBadStreamConfig   = errors.New("first message must be a JSON stream config")
	errUnexpectedMessage = errors.New(`expected binary PCM or {"type":"end"}`)
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case manager.IsInvalidRequest(err):
		return http.StatusBadRequest
	case manager.IsModelNotFound(err), manager.IsInputNotFound(err):
		return http.StatusNotFound
	case manager.IsCapabilityUnavailable(err):
		return http.StatusNotImplemented
	case manager.IsLoadFailed(err), errors.Is(err, manager.ErrClosed),
		errors.Is(err, session.ErrStreamInvalidated), errors.Is(err, backend.ErrHandleClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logError(nil, err, "encode response")
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusForKind maps the service error taxonomy to HTTP status codes.
func statusForKind(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidInput, service.KindDimensionMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError logs err and writes the matching error response.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)

	if errors.Is(err, service.ErrBusy) {
		logger.WarnContext(ctx, "maintenance job rejected", "error", err)
		writeError(w, http.StatusConflict, err.Error(), "")
		return
	}

	kind := service.KindOf(err)
	status := statusForKind(kind)
	msg := defaultMsg
	if status != http.StatusInternalServerError {
		msg = err.Error()
		logger.WarnContext(ctx, "request failed", "error", err, "kind", kind.String())
	} else {
		logger.ErrorContext(ctx, "service error", "error", err, "kind", kind.String())
	}
	writeError(w, status, msg, kind.String())
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message, kind string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message, Kind: kind})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/tavern-engine/internal/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps domain errors onto HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrScriptNotFound), errors.Is(err, dialogue.ErrInvalidScript):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dialogue.ErrOptionNotOffered), errors.Is(err, dialogue.ErrInteractionClosed),
		errors.Is(err, tavern.ErrInteractionBusy):
		return http.StatusConflict
	case errors.Is(err, tavern.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeServiceError reports err with the mapped status. Internal details are
// logged, not returned
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		writeError(w, logger, status, "Internal server error")
		return
	}
	writeError(w, logger, status, err.Error())
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/tavern-engine/internal/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/state"
)

// InteractionResponse is the interaction view plus its transcript
type InteractionResponse struct {
	state.View
	Transcript []state.TranscriptEntry `json:"transcript"`
}

// SelectRequest chooses one of the offered options
type SelectRequest struct {
	Option dialogue.OptionID `json:"option"`
}

func newInteractionResponse(it *state.Interaction) InteractionResponse {
	transcript := it.Transcript
	if transcript == nil {
		transcript = []state.TranscriptEntry{}
	}
	return InteractionResponse{View: it.View(), Transcript: transcript}
}

type InteractionHandler struct {
	service *tavern.Service
	logger  *slog.Logger
}

func NewInteractionHandler(service *tavern.Service, logger *slog.Logger) *InteractionHandler {
	return &InteractionHandler{
		service: service,
		logger:  logger,
	}
}

// ServeHTTP handles HTTP requests for interactions
// Routes:
// POST   /v1/interactions               - Start an interaction
// GET    /v1/interactions/{id}          - Read an interaction
// DELETE /v1/interactions/{id}          - End an interaction
// POST   /v1/interactions/{id}/advance  - Click the dialogue box
// POST   /v1/interactions/{id}/select   - Choose an offered option
func (h *InteractionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/interactions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleStart(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Unknown interaction route")
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid interaction ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid interaction ID format")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}
	switch parts[1] {
	case "advance":
		h.handleAdvance(w, r, id)
	case "select":
		h.handleSelect(w, r, id)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown interaction route")
	}
}

func (h *InteractionHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req tavern.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Language == "" {
		req.Language = r.Header.Get("Accept-Language")
	}

	it, err := h.service.Start(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, newInteractionResponse(it))
}

func (h *InteractionHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	it, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newInteractionResponse(it))
}

func (h *InteractionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.service.End(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InteractionHandler) handleAdvance(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	it, err := h.service.Advance(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newInteractionResponse(it))
}

func (h *InteractionHandler) handleSelect(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.Option == "" {
		writeError(w, h.logger, http.StatusBadRequest, "option is required")
		return
	}

	it, err := h.service.Select(r.Context(), id, req.Option)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newInteractionResponse(it))
}

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

// BartenderSummary is one entry in the bartender list
type BartenderSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// BartenderHandler serves the bartender catalog
// GET /v1/bartenders       - list bartenders
// GET /v1/bartenders/{id}  - bartender details
type BartenderHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewBartenderHandler(log *slog.Logger, storage storage.Storage) *BartenderHandler {
	return &BartenderHandler{
		log:     log,
		storage: storage,
	}
}

func (h *BartenderHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/bartenders"), "/")
	if id == "" {
		h.handleList(w, r)
		return
	}
	if strings.Contains(id, "/") || strings.Contains(id, "..") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid bartender ID")
		return
	}

	b, err := h.storage.GetBartender(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, b)
}

func (h *BartenderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids, err := h.storage.ListBartenders(ctx)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	out := make([]BartenderSummary, 0, len(ids))
	for _, id := range ids {
		b, err := h.storage.GetBartender(ctx, id)
		if err != nil {
			// One broken file should not hide the rest of the catalog
			h.log.Warn("Skipping invalid bartender", "bartender_id", id, "error", err)
			continue
		}
		out = append(out, summarize(b))
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

func summarize(b *actor.BartenderSpec) BartenderSummary {
	return BartenderSummary{ID: b.ID, Name: b.Name, Description: b.Description}
}

// PatronHandler serves patron state
// GET /v1/patrons       - list patron IDs
// GET /v1/patrons/{id}  - current patron state
type PatronHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewPatronHandler(log *slog.Logger, storage storage.Storage) *PatronHandler {
	return &PatronHandler{
		log:     log,
		storage: storage,
	}
}

func (h *PatronHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/patrons"), "/")
	if id == "" {
		ids, err := h.storage.ListPatrons(r.Context())
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		writeJSON(w, h.log, http.StatusOK, ids)
		return
	}
	if strings.Contains(id, "/") || strings.Contains(id, "..") {
		writeError(w, h.log, http.StatusBadRequest, "Invalid patron ID")
		return
	}

	p, err := h.storage.LoadPatron(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, p)
}

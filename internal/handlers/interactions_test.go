package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/tavern-engine/internal/tavern"
	"github.com/jwebster45206/tavern-engine/pkg/actor"
	"github.com/jwebster45206/tavern-engine/pkg/dialogue"
	"github.com/jwebster45206/tavern-engine/pkg/state"
	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

func newContentStorage() *storage.MockStorage {
	ms := storage.NewMockStorage()
	ms.AddBartender(&actor.BartenderSpec{
		ID:              "barista",
		Name:            "Barista",
		HealDescription: "[Espresso] Heal 10 HP.",
		HealAmount:      10,
		SecondOption: &actor.SecondOption{
			Description: "[Pastry] Take a pastry.",
			Effect:      actor.SecondaryEffect{Kind: actor.EffectItem, Item: "pastry"},
		},
	})
	ms.AddScript(&dialogue.Script{
		Key:           "barista_cutscene",
		Descriptions:  []string{"Welcome in!", "Here you go.", "Come back anytime."},
		Options:       []string{"No thanks."},
		BlockingTexts: []string{"Sold out."},
	})
	ms.AddPatronSpec(&actor.PatronSpec{ID: "wanderer", HP: 40, MaxHP: 72})
	return ms
}

func newTestInteractionHandler(t *testing.T) (*InteractionHandler, *storage.MockStorage) {
	t.Helper()
	ms := newContentStorage()
	return NewInteractionHandler(tavern.NewService(ms, nil, testLogger()), testLogger()), ms
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	return w
}

func decodeInteraction(t *testing.T, w *httptest.ResponseRecorder) InteractionResponse {
	t.Helper()
	var resp InteractionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestInteractionHandler_Flow(t *testing.T) {
	h, _ := newTestInteractionHandler(t)

	w := do(t, h, http.MethodPost, "/v1/interactions", tavern.StartRequest{BartenderID: "barista", PatronID: "wanderer"})
	require.Equal(t, http.StatusCreated, w.Code)
	started := decodeInteraction(t, w)
	assert.Equal(t, "Welcome in!", started.Line)
	assert.Equal(t, dialogue.PhaseGreeting, started.Phase)
	assert.NotNil(t, started.Options)
	assert.Empty(t, started.Options)

	base := "/v1/interactions/" + started.ID.String()

	w = do(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	offering := decodeInteraction(t, w)
	assert.Equal(t, dialogue.PhaseOffering, offering.Phase)
	require.Len(t, offering.Options, 3)

	w = do(t, h, http.MethodPost, base+"/select", SelectRequest{Option: dialogue.OptionSecond})
	require.Equal(t, http.StatusOK, w.Code)
	afterSecond := decodeInteraction(t, w)
	assert.True(t, afterSecond.SecondUsed)
	assert.Equal(t, "Come back anytime.", afterSecond.Line)
	assert.Equal(t, []dialogue.Option{
		{ID: dialogue.OptionHeal, Label: "[Espresso] Heal 10 HP."},
		{ID: dialogue.OptionDecline, Label: "No thanks."},
	}, afterSecond.Options)

	w = do(t, h, http.MethodPost, base+"/select", SelectRequest{Option: dialogue.OptionSecond})
	assert.Equal(t, http.StatusConflict, w.Code, "used option is no longer offered")

	w = do(t, h, http.MethodPost, base+"/select", SelectRequest{Option: dialogue.OptionHeal})
	require.Equal(t, http.StatusOK, w.Code)
	done := decodeInteraction(t, w)
	assert.True(t, done.Completed)
	assert.Empty(t, done.Options)

	w = do(t, h, http.MethodPost, base+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeInteraction(t, w).Closed)

	w = do(t, h, http.MethodPost, base+"/advance", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeInteraction(t, w)
	assert.NotEmpty(t, got.Transcript)
	assert.Equal(t, state.SpeakerBartender, got.Transcript[0].Speaker)

	w = do(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The flag outlives the interaction
	w = do(t, h, http.MethodPost, "/v1/interactions", tavern.StartRequest{BartenderID: "barista", PatronID: "wanderer"})
	require.Equal(t, http.StatusCreated, w.Code)
	blocked := decodeInteraction(t, w)
	assert.True(t, blocked.Blocked)
	assert.True(t, blocked.Closed)
	assert.Equal(t, "Sold out.", blocked.Line)
}

func TestInteractionHandler_Errors(t *testing.T) {
	h, _ := newTestInteractionHandler(t)
	missing := "/v1/interactions/" + uuid.New().String()

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		rawBody    string
		wantStatus int
	}{
		{"start unknown bartender", http.MethodPost, "/v1/interactions", tavern.StartRequest{BartenderID: "nobody", PatronID: "wanderer"}, "", http.StatusNotFound},
		{"start aliased bartender", http.MethodPost, "/v1/interactions", tavern.StartRequest{BartenderID: "./barista", PatronID: "wanderer"}, "", http.StatusBadRequest},
		{"start missing fields", http.MethodPost, "/v1/interactions", tavern.StartRequest{}, "", http.StatusBadRequest},
		{"start bad json", http.MethodPost, "/v1/interactions", nil, "{", http.StatusBadRequest},
		{"list not allowed", http.MethodGet, "/v1/interactions", nil, "", http.StatusMethodNotAllowed},
		{"bad id", http.MethodGet, "/v1/interactions/not-a-uuid", nil, "", http.StatusBadRequest},
		{"get missing", http.MethodGet, missing, nil, "", http.StatusNotFound},
		{"advance missing", http.MethodPost, missing + "/advance", nil, "", http.StatusNotFound},
		{"select empty", http.MethodPost, missing + "/select", SelectRequest{}, "", http.StatusBadRequest},
		{"unknown action", http.MethodPost, missing + "/dance", nil, "", http.StatusNotFound},
		{"advance wrong method", http.MethodGet, missing + "/advance", nil, "", http.StatusMethodNotAllowed},
		{"patch not allowed", http.MethodPatch, missing, nil, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if tt.rawBody != "" {
				w = httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.rawBody)))
			} else {
				w = do(t, h, tt.method, tt.path, tt.body)
			}
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestInteractionHandler_MissingScript(t *testing.T) {
	h, ms := newTestInteractionHandler(t)
	ms.AddBartender(&actor.BartenderSpec{ID: "ghost", HealDescription: "Heal", HealAmount: 1})

	w := do(t, h, http.MethodPost, "/v1/interactions", tavern.StartRequest{BartenderID: "ghost", PatronID: "wanderer"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

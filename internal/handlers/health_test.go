package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/tavern-engine/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		setupStorage    func() storage.Storage
		expectedStatus  int
		expectedHealth  string
		expectedStorage string
	}{
		{
			name: "all healthy",
			setupStorage: func() storage.Storage {
				ms := storage.NewMockStorage()
				ms.SetPingSuccess()
				return ms
			},
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedStorage: "healthy",
		},
		{
			name: "unhealthy storage",
			setupStorage: func() storage.Storage {
				ms := storage.NewMockStorage()
				ms.SetPingError(errors.New("connection failed"))
				return ms
			},
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedStorage: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupStorage(), testLogger())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			var response HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Status != tt.expectedHealth {
				t.Errorf("expected status %s, got %s", tt.expectedHealth, response.Status)
			}
			if response.Service != "tavern-engine" {
				t.Errorf("expected service tavern-engine, got %s", response.Service)
			}
			if got := response.Components["storage"]; got != tt.expectedStorage {
				t.Errorf("expected storage %s, got %v", tt.expectedStorage, got)
			}
			if response.Timestamp.IsZero() {
				t.Error("expected timestamp to be set")
			}
		})
	}
}

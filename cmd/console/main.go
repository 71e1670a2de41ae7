package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	Language   string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Language:   languageFromLocale(getEnv("TAVERN_LANGUAGE", os.Getenv("LANG"))),
		Timeout:    30 * time.Second,
	}

	api := &apiClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.APIBaseURL,
	}

	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: go run ./cmd/api\n")
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// languageFromLocale turns a POSIX locale like "fr_CA.UTF-8" into "fr-CA"
func languageFromLocale(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	Environment     string
	LogLevel        slog.Level
	RedisURL        string
	DataDir         string // empty means the embedded content
	DefaultLanguage string
	InteractionTTL  time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is read first if present; variables already set take precedence
func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := parseDuration(getEnv("INTERACTION_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid INTERACTION_TTL: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:        getEnv("REDIS_URL", "localhost:6379"),
		DataDir:         os.Getenv("DATA_DIR"),
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		InteractionTTL:  ttl,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required values are usable
func (c *Config) Validate() error {
	var errs []error
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Port))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.InteractionTTL <= 0 {
		errs = append(errs, errors.New("INTERACTION_TTL must be positive"))
	}
	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("DATA_DIR %q is not a directory", c.DataDir))
		}
	}
	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("90m") or plain seconds ("3600")
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/tavern-engine/data"
	"github.com/jwebster45206/tavern-engine/internal/config"
	"github.com/jwebster45206/tavern-engine/internal/handlers"
	"github.com/jwebster45206/tavern-engine/internal/logger"
	"github.com/jwebster45206/tavern-engine/internal/middleware"
	"github.com/jwebster45206/tavern-engine/internal/services/events"
	"github.com/jwebster45206/tavern-engine/internal/storage"
	"github.com/jwebster45206/tavern-engine/internal/tavern"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Tavern Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"default_language", cfg.DefaultLanguage)

	var contentFS fs.FS = data.FS()
	if cfg.DataDir != "" {
		contentFS = os.DirFS(cfg.DataDir)
	}
	content := storage.NewContent(contentFS, cfg.DefaultLanguage, log)
	log.Info("Content loaded", "languages", content.Languages())

	store, err := storage.NewRedisStorage(cfg.RedisURL, content, cfg.InteractionTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	broadcaster := events.NewBroadcaster(store.Client(), log)
	service := tavern.NewService(store, broadcaster, log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))
	mux.Handle("/metrics", promhttp.Handler())

	bartenderHandler := handlers.NewBartenderHandler(log, store)
	mux.Handle("/v1/bartenders", bartenderHandler)
	mux.Handle("/v1/bartenders/", bartenderHandler)

	patronHandler := handlers.NewPatronHandler(log, store)
	mux.Handle("/v1/patrons", patronHandler)
	mux.Handle("/v1/patrons/", patronHandler)

	interactionHandler := handlers.NewInteractionHandler(service, log)
	mux.Handle("/v1/interactions", interactionHandler)
	mux.Handle("/v1/interactions/", interactionHandler)

	mux.Handle("/v1/events/interaction/", handlers.NewEventsHandler(broadcaster, log))
	mux.Handle("/v1/ws/interaction/", handlers.NewWebSocketHandler(service, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE and websocket connections are long-lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"playtrace/src/features/config"
	"playtrace/src/features/hosting"
	"playtrace/src/features/importing"
	"playtrace/src/features/jobs"
	"playtrace/src/features/logging"
	"playtrace/src/features/metrics"
	"playtrace/src/features/profiles"
	"playtrace/src/features/stats"
	"playtrace/src/infra/database"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfgManager.EnsureDirectories(); err != nil {
		log.Fatalf("failed to prepare directories: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Create the database store
	store, err := database.NewSqliteStore(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()

	// Metrics registry
	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	// Create the job service
	jobService := jobs.NewService(&cfgManager.Get().Jobs)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			jobService.CleanupOldJobs(24 * time.Hour)
		}
	}()

	// Create the feature services
	statsService := stats.NewService(store)
	importingService := importing.NewService(store, cfgManager, jobService, statsService, recorder)
	profilesService := profiles.NewService(store)

	// Watch the data directory for new exports if enabled
	if cfgManager.Get().Import.AutoStartWatcher {
		watcher, err := importing.NewWatcher(importingService, cfgManager.Get().DataPath)
		if err != nil {
			slog.Error("Failed to create directory watcher", "error", err)
		} else if err := watcher.Start(context.Background()); err != nil {
			slog.Error("Failed to start directory watcher", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, store, importingService, profilesService, statsService, jobService, registry)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down server...")

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}

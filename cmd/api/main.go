package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gravadigital/encuentro-api/internal/config"
	"github.com/gravadigital/encuentro-api/internal/logger"
	"github.com/gravadigital/encuentro-api/internal/outbox"
	"github.com/gravadigital/encuentro-api/internal/server"
	"github.com/gravadigital/encuentro-api/internal/storage"
)

func main() {
	cfg := config.Load()

	logLevel := "info"
	if cfg.Server.GinMode == "debug" {
		logLevel = "debug"
	}
	logger.Initialize(logLevel)
	log := logger.Get()

	log.Info("Starting Encuentro API", "storage", cfg.Storage.Type, "port", cfg.Server.Port)

	storageType, err := storage.ValidateStorageType(cfg.Storage.Type)
	if err != nil {
		log.Error("Invalid storage configuration", "error", err)
		os.Exit(1)
	}

	backend, err := storage.NewBackend(storageType, cfg)
	if err != nil {
		log.Error("Failed to initialize storage backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	var notifier outbox.Notifier
	if cfg.Outbox.WebhookURL != "" {
		notifier = outbox.NewWebhookNotifier(cfg.Outbox.WebhookURL)
	} else {
		notifier = outbox.NewLogNotifier()
	}

	dispatcher := outbox.NewDispatcher(backend.Outbox(), notifier, cfg.Outbox.PollInterval, cfg.Outbox.MaxAttempts)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Run(dispatcherCtx)

	srv := server.New(cfg, backend)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Error("Server failed", "error", err)
			stopDispatcher()
			os.Exit(1)
		}
	case sig := <-quit:
		log.Info("Shutdown signal received", "signal", sig.String())
	}

	stopDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped")
}

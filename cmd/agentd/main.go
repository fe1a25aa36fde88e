package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phonesentry/phonesentry/internal/auth"
	"github.com/phonesentry/phonesentry/internal/config"
	"github.com/phonesentry/phonesentry/internal/device"
	"github.com/phonesentry/phonesentry/internal/handler"
	"github.com/phonesentry/phonesentry/internal/logger"
	"github.com/phonesentry/phonesentry/internal/middleware"
	"github.com/phonesentry/phonesentry/internal/notify"
	"github.com/phonesentry/phonesentry/internal/repository"
	"github.com/phonesentry/phonesentry/internal/router"
	"github.com/phonesentry/phonesentry/internal/service"
	"github.com/phonesentry/phonesentry/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", "0.1.0").Msg("starting PhoneSentry agent")

	// Open the encrypted store
	key, err := cfg.Storage.EncryptionKey()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to resolve storage key")
	}
	store, err := storage.Open(cfg.Storage.DataDir, key)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open encrypted store")
	}
	defer store.Close()
	log.Info().Str("data_dir", cfg.Storage.DataDir).Msg("encrypted store opened")

	// Initialize repositories
	eventRepo, err := repository.NewEventRepository(store, cfg.Storage.RotationCap)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open event log")
	}
	configRepo := repository.NewConfigRepository(store)
	credRepo := repository.NewCredentialRepository(store)
	deviceRepo := repository.NewDeviceRepository(store)

	// Initialize services
	credSvc := service.NewCredentialService(credRepo, eventRepo, cfg, log)
	auditSvc := service.NewAuditService(eventRepo, credSvc, cfg, log)
	protectionSvc := service.NewProtectionService(configRepo, credSvc, auditSvc, cfg, log)
	trustSvc := service.NewTrustService(deviceRepo, auditSvc, log)

	// Restore the trusted device set (corrupt storage resets, never aborts)
	if err := trustSvc.Restore(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to restore trusted devices")
	}

	// Collaborators: outbound texts and privileged device actions
	var sender notify.Sender
	switch cfg.Notify.Backend {
	case "", "log":
		sender = notify.NewLogSender(log)
	case "none":
		sender = notify.NullSender{}
	default:
		log.Fatal().Str("backend", cfg.Notify.Backend).Msg("unsupported notify backend")
	}
	controller := device.NewStubController(log)

	commandSvc := service.NewCommandService(credSvc, auditSvc, protectionSvc, controller, sender, log)

	// Initialize the admin token service
	tokenSvc, err := auth.NewTokenService(cfg.Security.Tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token service")
	}

	// Initialize handlers, middleware and router
	h := handler.New(log, cfg, credSvc, auditSvc, protectionSvc, commandSvc, trustSvc, tokenSvc, controller)
	mw := middleware.New(log, cfg)
	r := router.New(h, mw, log, tokenSvc)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.RequestID(mw.Logger(mw.Recover(auditSvc)(r))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("admin API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("agent stopped")
}

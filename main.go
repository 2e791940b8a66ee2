package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeyportfolio/portfolio/config"
	"github.com/joeyportfolio/portfolio/handlers"
	"github.com/joeyportfolio/portfolio/internal/bootstrap"
	"github.com/joeyportfolio/portfolio/internal/content"
	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/internal/websocket"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/router"
	"github.com/joeyportfolio/portfolio/services"
	"github.com/joeyportfolio/portfolio/web"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.OpenRecordClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer func() {
		if err := stack.Close(); err != nil {
			log.Warnw("Failed to close record store", "error", err)
		}
	}()

	page, err := content.Load(cfg.Content.Path)
	if err != nil {
		log.Fatalf("Failed to load portfolio content: %v", err)
	}
	tmpl, err := web.ParseTemplates()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	// Services
	feedbackService := feedback.NewService(stack.Client,
		feedback.WithOperationTimeout(cfg.Store.OperationTimeout))

	var relays []services.ContactNotifier
	if cfg.Contact.ResendAPIKey != "" {
		relays = append(relays, services.NewResendNotifier(&cfg.Contact))
	}
	contactService := services.NewContactService(relays...)

	hub := websocket.NewHub()
	healthService := services.NewHealthService(stack.Client, stack.Redis, cfg.Server.Version)
	healthService.SetActiveSessionsGetter(hub.Count)

	r := router.SetupRouter(router.Dependencies{
		Config:          cfg,
		PageHandler:     handlers.NewPageHandler(page, feedbackService, tmpl),
		FeedbackHandler: handlers.NewFeedbackHandler(feedbackService),
		ContactHandler:  handlers.NewContactHandler(contactService),
		HealthHandler:   handlers.NewHealthHandler(healthService),
		WSHandler:       websocket.NewHandler(hub, feedbackService, &cfg.Server),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Errorw("Server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Live sessions are hijacked connections; http.Server.Shutdown does not
	// wait for them, so the hub closes them first.
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Warnw("WebSocket hub shutdown incomplete", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown failed", "error", err)
	}
	log.Info("Server stopped")
}

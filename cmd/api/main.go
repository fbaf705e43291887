// Command api is the Court Watch API server. It serves availability, watch,
// and alert endpoints, and runs the scrape scheduler plus retention
// maintenance in the background.
//
// Usage:
//
//	courtwatch-api
//	API_PORT=8080 courtwatch-api

// @title Court Watch API
// @version 1.0.0
// @description Reservation slot tracker: scrapes upstream court availability, matches new slots against user watches, and records alerts. Read surfaces serve current availability, watch management, alert history, and scraper status.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Court Watch
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/courtwatch/courtwatch-data/internal/api"
	"github.com/courtwatch/courtwatch-data/internal/availability"
	"github.com/courtwatch/courtwatch-data/internal/cache"
	"github.com/courtwatch/courtwatch-data/internal/config"
	"github.com/courtwatch/courtwatch-data/internal/db"
	"github.com/courtwatch/courtwatch-data/internal/maintenance"
	"github.com/courtwatch/courtwatch-data/internal/notify"
	"github.com/courtwatch/courtwatch-data/internal/rec"
	"github.com/courtwatch/courtwatch-data/internal/scheduler"
	"github.com/courtwatch/courtwatch-data/internal/store"

	_ "github.com/courtwatch/courtwatch-data/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Schema must exist before the pool connects: pool connections prepare
	// statements that reference the tables.
	if err := db.EnsureSchema(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	st := store.New(pool)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Mailer is nil when SMTP is disabled; the pipeline treats that as a
	// no-op notifier and alerts are still recorded.
	mailer := notify.NewMailer(cfg.SMTPEnabled, notify.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.SMTPUsername,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.SMTPFromAddress,
		UseTLS:      cfg.SMTPUseTLS,
	}, logger)
	if mailer == nil {
		logger.Info("Email alerts disabled (SMTP_ENABLED=false)")
	}

	recClient := rec.NewClient(cfg.RecBaseURL, cfg.OrganizationSlug, cfg.HTTPTimeout, logger)
	pipeline := availability.NewPipeline(recClient, st, mailer, cfg.SportID, cfg.Timezone, logger)

	// Scrape scheduler: fixed interval, passes never overlap.
	sched := scheduler.New(cfg.ScrapeInterval, cfg.ScraperEnabled, pipeline.Run, logger)
	sched.Start(ctx)

	// Retention maintenance (prune stale slots and old alerts)
	go maintenance.Start(ctx, pool.Pool, maintenance.DefaultConfig(), logger)

	// Create router
	router := api.NewRouter(st, appCache, cfg, sched.State)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Court Watch API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout; drain any in-flight scrape pass first.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("Scrape pass still running at shutdown deadline")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

// Package main is the entry point for the FunnelPulse server.
//
// FunnelPulse is a self-hosted marketing analytics engine: it ingests raw
// funnel events, sessions, and purchases, derives funnel health metrics,
// evaluates admin-defined alert rules against them, and serves revenue,
// cohort retention, and churn analytics over a REST API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, environment (Koanf v2)
//  2. Database: DuckDB with the funnel/purchase/alert schema
//  3. Analytics service: windowed metrics and the overview aggregator
//  4. Alert engine: rule evaluation, trigger recording, webhook notifier
//  5. Throttle: BadgerDB TTL limiter for API-initiated alert checks
//  6. Supervisor tree: HTTP server (api layer) and the periodic alert
//     checker (jobs layer)
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config.yaml, built-in defaults.
// Common settings:
//
//	export HTTP_PORT=8087
//	export DUCKDB_PATH=/data/funnelpulse.duckdb
//	export ALERT_WEBHOOK_URL=https://hooks.example.com/funnel
//	export ALERT_CHECK_INTERVAL=1h
//	export LOG_LEVEL=info
//	./funnelpulse
//
// Setting ALERT_CHECK_INTERVAL=0 disables the background checker; checks
// can still be invoked via POST /api/v1/alerts/check.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests within the shutdown
// timeout, then closes the throttle store and database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/funnelpulse/funnelpulse/internal/alerting"
	"github.com/funnelpulse/funnelpulse/internal/analytics"
	"github.com/funnelpulse/funnelpulse/internal/api"
	"github.com/funnelpulse/funnelpulse/internal/config"
	"github.com/funnelpulse/funnelpulse/internal/database"
	"github.com/funnelpulse/funnelpulse/internal/logging"
	"github.com/funnelpulse/funnelpulse/internal/supervisor"
	"github.com/funnelpulse/funnelpulse/internal/supervisor/services"
	"github.com/funnelpulse/funnelpulse/internal/throttle"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("addr", cfg.Server.Addr()).
		Dur("check_interval", cfg.Alerting.CheckInterval).
		Msg("Starting FunnelPulse")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	analyticsSvc := analytics.NewService(db, &cfg.Analytics)

	// The webhook notifier stays registered even without a URL; it reports
	// disabled and Send becomes a no-op until one is configured.
	webhook := alerting.NewWebhookNotifier(alerting.WebhookConfig{
		WebhookURL: cfg.Alerting.WebhookURL,
		Timeout:    cfg.Alerting.WebhookTimeout,
	})
	if webhook.Enabled() {
		logging.Info().Str("url", cfg.Alerting.WebhookURL).Msg("Alert webhook notifier enabled")
	}
	engine := alerting.NewEngine(db, analyticsSvc, &cfg.Alerting, webhook)

	limiter, err := throttle.New(cfg.Alerting.ThrottlePath, cfg.Alerting.ThrottleTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open throttle store")
	}
	defer func() {
		if err := limiter.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing throttle store")
		}
	}()

	handler := api.NewHandler(db, analyticsSvc, engine, limiter, &cfg.API)
	router := api.NewRouter(handler, &cfg.API)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	if cfg.Alerting.CheckInterval > 0 {
		tree.AddJobService(services.NewCheckerService(engine, cfg.Alerting.CheckInterval))
	} else {
		logging.Info().Msg("Background alert checker disabled (check_interval=0)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("FunnelPulse stopped gracefully")
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/funnelpulse/funnelpulse/internal/config"
)

// NewRouter assembles the chi router with the full middleware stack and
// every FunnelPulse route.
func NewRouter(h *Handler, cfg *config.APIConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog())
	r.Use(PrometheusMetrics())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.RateLimitReqs > 0 && cfg.RateLimitWindow > 0 {
		r.Use(httprate.Limit(
			cfg.RateLimitReqs,
			cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/analytics", h.GetAnalytics)

		r.Post("/alerts/check", h.CheckAlerts)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Get("/count", h.NotificationCount)
			r.Post("/read-all", h.MarkAllNotificationsRead)
		})

		r.Route("/alert-rules", func(r chi.Router) {
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
			r.Patch("/{id}", h.UpdateRule)
			r.Delete("/{id}", h.DeleteRule)
		})

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/events", h.IngestEvent)
			r.Post("/sessions", h.IngestSession)
			r.Post("/purchases", h.IngestPurchase)
		})

		r.Route("/health", func(r chi.Router) {
			r.Get("/live", h.Live)
			r.Get("/ready", h.Ready)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

// Package metrics provides Prometheus instrumentation for FunnelPulse:
// analytics query performance, alert evaluation outcomes, webhook delivery,
// and API endpoint latency. Collectors register themselves on the default
// registry via promauto; the API exposes them on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analytics metrics
	AnalyticsDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "funnelpulse_analytics_duration_seconds",
			Help:    "Duration of full analytics overview computations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AnalyticsErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelpulse_analytics_errors_total",
			Help: "Total number of failed analytics overview computations",
		},
	)

	// Alert engine metrics
	AlertChecksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelpulse_alert_checks_total",
			Help: "Total number of alert check runs",
		},
	)

	AlertCheckErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelpulse_alert_check_errors_total",
			Help: "Total number of failed alert check runs",
		},
	)

	AlertEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelpulse_alert_evaluations_total",
			Help: "Total number of rule evaluations by outcome",
		},
		[]string{"outcome"}, // "triggered", "not_triggered", "skipped"
	)

	AlertTriggersRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelpulse_alert_triggers_recorded_total",
			Help: "Total number of alert triggers persisted to history",
		},
	)

	AlertTriggersSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "funnelpulse_alert_triggers_suppressed_total",
			Help: "Total number of alert triggers suppressed by the cooldown window",
		},
	)

	// Webhook notifier metrics
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelpulse_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts by result",
		},
		[]string{"result"}, // "success", "error", "breaker_open"
	)

	WebhookBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "funnelpulse_webhook_breaker_state",
			Help: "Webhook circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnelpulse_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnelpulse_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one API request observation.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

// Package analytics computes the derived funnel metrics: the per-window
// health metric set consumed by the alert engine, cohort retention curves,
// and the revenue/trend overview.
package analytics

import "github.com/funnelpulse/funnelpulse/internal/models"

// dailySessionsDivisor is fixed at 7 regardless of the configured window.
// Historical behavior, kept so dashboards and alert thresholds tuned
// against it stay comparable.
const dailySessionsDivisor = 7

// ComputeMetrics derives the health metric set from raw window counts.
// Every zero denominator resolves to 0; the result never contains NaN or
// Inf because the alert evaluator performs ordering comparisons on it.
func ComputeMetrics(counts *models.WindowCounts) models.MetricSet {
	var m models.MetricSet

	if counts.TotalSessions > 0 {
		total := float64(counts.TotalSessions)
		completed := float64(counts.CompletedSessions)
		m.CompletionRate = completed / total * 100
		m.AbandonedRate = (total - completed) / total * 100
	}

	if counts.CompletedSessions > 0 {
		m.ConversionRate = float64(counts.TotalOrders) / float64(counts.CompletedSessions) * 100
	}

	m.DailySessions = float64(counts.TotalSessions) / dailySessionsDivisor

	return m
}

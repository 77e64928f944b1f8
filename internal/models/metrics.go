// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package models

// MetricKind identifies one of the health metrics produced by the metric
// calculator. The set is closed: alert rules referencing any other string are
// inert, and adding a kind without binding it in MetricSet.Value is a
// compile-time error (exhaustive switch).
type MetricKind string

const (
	// MetricCompletionRate is the percentage of sessions in the window that
	// completed the funnel.
	MetricCompletionRate MetricKind = "completion_rate"

	// MetricDailySessions is the average sessions per day over the window.
	MetricDailySessions MetricKind = "daily_sessions"

	// MetricConversionRate is the percentage of completed sessions that
	// produced an order.
	MetricConversionRate MetricKind = "conversion_rate"

	// MetricAbandonedRate is the percentage of sessions in the window that
	// did not complete the funnel.
	MetricAbandonedRate MetricKind = "abandoned_rate"
)

// ParseMetricKind resolves a stored metric type string to a MetricKind.
// Unknown strings return ok=false; callers treat rules carrying them as
// inert rather than failing.
func ParseMetricKind(s string) (MetricKind, bool) {
	switch MetricKind(s) {
	case MetricCompletionRate, MetricDailySessions, MetricConversionRate, MetricAbandonedRate:
		return MetricKind(s), true
	default:
		return "", false
	}
}

// Label returns the human-readable name used in alert messages.
func (k MetricKind) Label() string {
	switch k {
	case MetricCompletionRate:
		return "completion rate"
	case MetricDailySessions:
		return "daily sessions"
	case MetricConversionRate:
		return "conversion rate"
	case MetricAbandonedRate:
		return "abandonment rate"
	default:
		return string(k)
	}
}

// IsPercentage reports whether values of this kind carry a % unit in
// rendered alert messages. daily_sessions is unitless.
func (k MetricKind) IsPercentage() bool {
	return k != MetricDailySessions
}

// AllMetricKinds lists every known metric kind, in display order.
func AllMetricKinds() []MetricKind {
	return []MetricKind{
		MetricCompletionRate,
		MetricDailySessions,
		MetricConversionRate,
		MetricAbandonedRate,
	}
}

// MetricSet is the output of one metric calculator run. All values are
// finite: zero denominators yield 0, never NaN or Inf, because the alert
// evaluator performs ordering comparisons on them.
type MetricSet struct {
	CompletionRate float64 `json:"completion_rate"`
	DailySessions  float64 `json:"daily_sessions"`
	ConversionRate float64 `json:"conversion_rate"`
	AbandonedRate  float64 `json:"abandoned_rate"`
}

// Value returns the metric for the given kind.
func (m MetricSet) Value(kind MetricKind) float64 {
	switch kind {
	case MetricCompletionRate:
		return m.CompletionRate
	case MetricDailySessions:
		return m.DailySessions
	case MetricConversionRate:
		return m.ConversionRate
	case MetricAbandonedRate:
		return m.AbandonedRate
	default:
		return 0
	}
}

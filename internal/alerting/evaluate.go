// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

// Package alerting evaluates admin-defined alert rules against the computed
// funnel metrics, records triggers with cooldown bookkeeping, and fans
// triggered alerts out to notifiers.
package alerting

import (
	"fmt"
	"math"
	"strconv"

	"github.com/funnelpulse/funnelpulse/internal/models"
)

// Evaluate checks one rule against a metric set. It returns whether the
// rule fired and, if so, the rendered alert message.
//
// Rules whose metric type is unknown are silently skipped: they never fire
// and never error. Deactivating a metric kind therefore turns rules bound
// to it inert instead of breaking check runs.
func Evaluate(rule *models.AlertRule, m models.MetricSet) (bool, string) {
	kind, ok := models.ParseMetricKind(rule.MetricType)
	if !ok {
		return false, ""
	}

	value := m.Value(kind)

	var triggered bool
	switch rule.Condition {
	case models.ConditionBelow:
		triggered = value < rule.Threshold
	case models.ConditionAbove:
		triggered = value > rule.Threshold
	case models.ConditionChangePercent:
		// Magnitude comparison, not a delta against a prior period.
		triggered = math.Abs(value) > rule.Threshold
	default:
		return false, ""
	}

	if !triggered {
		return false, ""
	}

	return true, renderMessage(rule, kind, value)
}

// renderMessage builds the alert message shown in notifications, e.g.
// "Low completions: completion rate below 50% (current value: 40%)".
// The % unit is omitted for unitless metrics (daily sessions).
func renderMessage(rule *models.AlertRule, kind models.MetricKind, value float64) string {
	unit := ""
	if kind.IsPercentage() {
		unit = "%"
	}

	return fmt.Sprintf("%s: %s %s %s%s (current value: %s%s)",
		rule.Name,
		kind.Label(),
		rule.Condition.Label(),
		formatNumber(rule.Threshold), unit,
		formatNumber(value), unit,
	)
}

// formatNumber renders a float without trailing zeros (40 not 40.000000).
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package models

import "time"

// AlertCondition is the comparison applied between a metric value and a
// rule's threshold.
type AlertCondition string

const (
	// ConditionBelow triggers when value < threshold.
	ConditionBelow AlertCondition = "below"

	// ConditionAbove triggers when value > threshold.
	ConditionAbove AlertCondition = "above"

	// ConditionChangePercent triggers when abs(value) > threshold. It does
	// NOT compute a change against a prior period; the intended baseline is
	// an open product question and the magnitude comparison is preserved
	// as-is until that is settled.
	ConditionChangePercent AlertCondition = "change_percent"
)

// ParseAlertCondition resolves a stored condition string.
func ParseAlertCondition(s string) (AlertCondition, bool) {
	switch AlertCondition(s) {
	case ConditionBelow, ConditionAbove, ConditionChangePercent:
		return AlertCondition(s), true
	default:
		return "", false
	}
}

// Label returns the phrase used in rendered alert messages.
func (c AlertCondition) Label() string {
	switch c {
	case ConditionBelow:
		return "below"
	case ConditionAbove:
		return "above"
	case ConditionChangePercent:
		return "changed more than"
	default:
		return string(c)
	}
}

// AlertRule is an admin-defined threshold condition over a named metric.
// The analytics core reads active rules and writes only the two trigger
// bookkeeping fields (TriggerCount, LastTriggeredAt); everything else is
// owned by the admin CRUD surface.
type AlertRule struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	MetricType      string         `json:"metric_type"`
	Condition       AlertCondition `json:"condition"`
	Threshold       float64        `json:"threshold"`
	Category        string         `json:"category,omitempty"`
	IsActive        bool           `json:"is_active"`
	TriggerCount    int64          `json:"trigger_count"`
	LastTriggeredAt *time.Time     `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AlertHistoryRecord is one persisted trigger instance. It is written
// exactly once per triggering evaluation; only IsRead is mutated afterwards
// (bulk mark-read).
type AlertHistoryRecord struct {
	ID             int64     `json:"id"`
	AlertID        int64     `json:"alert_id"`
	MetricValue    float64   `json:"metric_value"`
	ThresholdValue float64   `json:"threshold_value"`
	Message        string    `json:"message"`
	TriggeredAt    time.Time `json:"triggered_at"`
	IsRead         bool      `json:"is_read"`
}

// Notification is an unread history record joined with its rule's display
// fields for the admin notification queue.
type Notification struct {
	AlertHistoryRecord
	RuleName   string `json:"rule_name"`
	MetricType string `json:"metric_type"`
}

// TriggeredAlert is the result of one rule firing during a check run.
type TriggeredAlert struct {
	Rule        AlertRule `json:"rule"`
	MetricValue float64   `json:"metric_value"`
	Message     string    `json:"message"`
}

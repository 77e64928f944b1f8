// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/funnelpulse/funnelpulse/internal/analytics"
	"github.com/funnelpulse/funnelpulse/internal/config"
	"github.com/funnelpulse/funnelpulse/internal/database"
	"github.com/funnelpulse/funnelpulse/internal/logging"
	"github.com/funnelpulse/funnelpulse/internal/metrics"
	"github.com/funnelpulse/funnelpulse/internal/models"
)

// Notifier delivers triggered alerts to an external channel.
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, alert *models.TriggeredAlert) error
}

// Engine runs alert checks: compute metrics, evaluate every active rule,
// record triggers, notify.
type Engine struct {
	db        *database.DB
	analytics *analytics.Service
	cfg       *config.AlertingConfig
	notifiers []Notifier
}

// NewEngine creates an alert engine. Notifiers are optional.
func NewEngine(db *database.DB, svc *analytics.Service, cfg *config.AlertingConfig, notifiers ...Notifier) *Engine {
	return &Engine{
		db:        db,
		analytics: svc,
		cfg:       cfg,
		notifiers: notifiers,
	}
}

// CheckAlerts runs one full check: it computes the metric window, evaluates
// every active rule, and records each firing through the cooldown-guarded
// trigger bookkeeping. Triggers suppressed by the cooldown are not returned.
//
// A store failure fails the whole run. An error result is distinguishable
// from a successful run that triggered nothing: callers must never read a
// failed check as "no alerts".
func (e *Engine) CheckAlerts(ctx context.Context) ([]models.TriggeredAlert, error) {
	metrics.AlertChecksTotal.Inc()

	metricSet, err := e.analytics.ComputeWindowMetrics(ctx, e.cfg.WindowDays)
	if err != nil {
		metrics.AlertCheckErrors.Inc()
		return nil, fmt.Errorf("alert check: %w", err)
	}

	rules, err := e.db.ListActiveRules(ctx)
	if err != nil {
		metrics.AlertCheckErrors.Inc()
		return nil, fmt.Errorf("alert check: %w", err)
	}

	now := time.Now().UTC()
	triggered := make([]models.TriggeredAlert, 0)

	for i := range rules {
		rule := &rules[i]

		kind, known := models.ParseMetricKind(rule.MetricType)
		if !known {
			metrics.AlertEvaluationsTotal.WithLabelValues("skipped").Inc()
			logging.Ctx(ctx).Debug().
				Int64("rule_id", rule.ID).
				Str("metric_type", rule.MetricType).
				Msg("skipping rule with unknown metric type")
			continue
		}

		fired, message := Evaluate(rule, metricSet)
		if !fired {
			metrics.AlertEvaluationsTotal.WithLabelValues("not_triggered").Inc()
			continue
		}
		metrics.AlertEvaluationsTotal.WithLabelValues("triggered").Inc()

		value := metricSet.Value(kind)
		recorded, err := e.db.RecordTrigger(ctx, rule.ID, value, rule.Threshold, message, now, e.cfg.Cooldown)
		if err != nil {
			metrics.AlertCheckErrors.Inc()
			return nil, fmt.Errorf("alert check: record trigger for rule %d: %w", rule.ID, err)
		}
		if !recorded {
			metrics.AlertTriggersSuppressed.Inc()
			logging.Ctx(ctx).Debug().
				Int64("rule_id", rule.ID).
				Msg("trigger suppressed by cooldown")
			continue
		}
		metrics.AlertTriggersRecorded.Inc()

		alert := models.TriggeredAlert{
			Rule:        *rule,
			MetricValue: value,
			Message:     message,
		}
		triggered = append(triggered, alert)

		logging.Ctx(ctx).Info().
			Int64("rule_id", rule.ID).
			Str("rule", rule.Name).
			Float64("value", value).
			Float64("threshold", rule.Threshold).
			Msg("alert triggered")

		e.notify(ctx, &alert)
	}

	return triggered, nil
}

// notify fans one alert out to every enabled notifier. Delivery failures
// are logged, never propagated: the trigger is already durably recorded.
func (e *Engine) notify(ctx context.Context, alert *models.TriggeredAlert) {
	for _, n := range e.notifiers {
		if !n.Enabled() {
			continue
		}
		if err := n.Send(ctx, alert); err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("notifier", n.Name()).
				Int64("rule_id", alert.Rule.ID).
				Msg("alert notification failed")
		}
	}
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/funnelpulse/funnelpulse/internal/models"
)

const ruleColumns = `id, name, metric_type, condition, threshold, category,
	is_active, trigger_count, last_triggered_at, created_at, updated_at`

// scanRule scans one alert_rules row.
func scanRule(row interface{ Scan(...any) error }) (*models.AlertRule, error) {
	var rule models.AlertRule
	var category sql.NullString
	var lastTriggered sql.NullTime

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.MetricType, &rule.Condition, &rule.Threshold,
		&category, &rule.IsActive, &rule.TriggerCount, &lastTriggered,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if category.Valid {
		rule.Category = category.String
	}
	if lastTriggered.Valid {
		t := lastTriggered.Time
		rule.LastTriggeredAt = &t
	}

	return &rule, nil
}

// ListRules returns all alert rules, newest first.
func (db *DB) ListRules(ctx context.Context) ([]models.AlertRule, error) {
	return db.listRules(ctx, false)
}

// ListActiveRules returns only active rules. This is the alert engine's
// read path; inactive rules are never evaluated.
func (db *DB) ListActiveRules(ctx context.Context) ([]models.AlertRule, error) {
	return db.listRules(ctx, true)
}

func (db *DB) listRules(ctx context.Context, activeOnly bool) ([]models.AlertRule, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT ` + ruleColumns + ` FROM alert_rules`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer closeQuietly(rows)

	var rules []models.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}

	return rules, nil
}

// GetRule returns one rule by ID, or ErrRuleNotFound.
func (db *DB) GetRule(ctx context.Context, id int64) (*models.AlertRule, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM alert_rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rule %d: %w", id, err)
	}

	return rule, nil
}

// CreateRule persists a new alert rule and returns it with generated fields
// populated.
func (db *DB) CreateRule(ctx context.Context, rule *models.AlertRule) (*models.AlertRule, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var category any
	if rule.Category != "" {
		category = rule.Category
	}

	row := db.conn.QueryRowContext(ctx,
		`INSERT INTO alert_rules (name, metric_type, condition, threshold, category, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING `+ruleColumns,
		rule.Name, rule.MetricType, string(rule.Condition), rule.Threshold, category, rule.IsActive,
	)

	created, err := scanRule(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert rule: %w", err)
	}

	return created, nil
}

// RuleUpdate carries the optional fields of a partial rule update. Nil
// fields are left untouched.
type RuleUpdate struct {
	Name      *string
	Threshold *float64
	Condition *models.AlertCondition
	IsActive  *bool
}

// UpdateRule applies a partial update to a rule and returns the updated
// row. Returns ErrRuleNotFound if the ID does not exist.
func (db *DB) UpdateRule(ctx context.Context, id int64, upd *RuleUpdate) (*models.AlertRule, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []any

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Threshold != nil {
		sets = append(sets, "threshold = ?")
		args = append(args, *upd.Threshold)
	}
	if upd.Condition != nil {
		sets = append(sets, "condition = ?")
		args = append(args, string(*upd.Condition))
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}

	args = append(args, id)
	query := `UPDATE alert_rules SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? RETURNING ` + ruleColumns

	row := db.conn.QueryRowContext(ctx, query, args...)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update alert rule %d: %w", id, err)
	}

	return rule, nil
}

// DeleteRule removes a rule and its history. Returns ErrRuleNotFound if the
// ID does not exist.
func (db *DB) DeleteRule(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_history WHERE alert_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete alert history for rule %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule delete: %w", err)
	}
	return nil
}

// RecordTrigger atomically records one rule firing: it bumps the rule's
// trigger bookkeeping and appends a history row in a single transaction.
//
// The bookkeeping UPDATE is conditional on the cooldown. When another check
// run already triggered the rule inside the cooldown window, zero rows are
// updated, no history row is written, and recorded=false is returned. This
// makes concurrent check runs safe: exactly one of them records the firing.
func (db *DB) RecordTrigger(ctx context.Context, ruleID int64, metricValue, threshold float64, message string, now time.Time, cooldown time.Duration) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin trigger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := now.Add(-cooldown)
	res, err := tx.ExecContext(ctx,
		`UPDATE alert_rules
		 SET trigger_count = trigger_count + 1, last_triggered_at = ?, updated_at = ?
		 WHERE id = ? AND is_active
		   AND (last_triggered_at IS NULL OR last_triggered_at < ?)`,
		now, now, ruleID, cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update trigger bookkeeping for rule %d: %w", ruleID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read trigger update result: %w", err)
	}
	if affected == 0 {
		// Cooldown suppressed or rule deactivated since evaluation.
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO alert_history (alert_id, metric_value, threshold_value, message, triggered_at, is_read)
		 VALUES (?, ?, ?, ?, ?, FALSE)`,
		ruleID, metricValue, threshold, message, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert alert history for rule %d: %w", ruleID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit trigger for rule %d: %w", ruleID, err)
	}

	return true, nil
}

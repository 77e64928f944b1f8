// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// initialize creates tables and indexes. All statements are idempotent so
// startup against an existing database is a no-op.
func (db *DB) initialize() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %s: %w", query, err)
		}
	}

	for _, query := range indexCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table creation SQL statements.
// DuckDB has no AUTO_INCREMENT; integer IDs come from sequences.
func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS funnel_events_id_seq`,
		`CREATE SEQUENCE IF NOT EXISTS purchases_id_seq`,
		`CREATE SEQUENCE IF NOT EXISTS alert_rules_id_seq`,
		`CREATE SEQUENCE IF NOT EXISTS alert_history_id_seq`,

		// Raw funnel instrumentation events. One row per tracked interaction.
		`CREATE TABLE IF NOT EXISTS funnel_events (
			id BIGINT PRIMARY KEY DEFAULT nextval('funnel_events_id_seq'),
			session_id TEXT NOT NULL,
			category TEXT,
			timestamp TIMESTAMP NOT NULL
		)`,

		// Funnel sessions keyed by visitor email. created_at anchors cohort
		// assignment; updated_at tracks last activity for retention/churn.
		`CREATE TABLE IF NOT EXISTS funnel_sessions (
			email TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			exit_step INTEGER
		)`,

		// Purchase records. Only status='completed' counts toward revenue.
		`CREATE TABLE IF NOT EXISTS purchases (
			id BIGINT PRIMARY KEY DEFAULT nextval('purchases_id_seq'),
			amount DOUBLE NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			status TEXT NOT NULL DEFAULT 'completed',
			purchased_at TIMESTAMP NOT NULL
		)`,

		// Admin-defined alert rules. trigger_count and last_triggered_at are
		// the only fields the alert engine mutates.
		`CREATE TABLE IF NOT EXISTS alert_rules (
			id BIGINT PRIMARY KEY DEFAULT nextval('alert_rules_id_seq'),
			name TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			condition TEXT NOT NULL,
			threshold DOUBLE NOT NULL,
			category TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			trigger_count BIGINT NOT NULL DEFAULT 0,
			last_triggered_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per triggering evaluation. Append-only except is_read.
		`CREATE TABLE IF NOT EXISTS alert_history (
			id BIGINT PRIMARY KEY DEFAULT nextval('alert_history_id_seq'),
			alert_id BIGINT NOT NULL,
			metric_value DOUBLE NOT NULL,
			threshold_value DOUBLE NOT NULL,
			message TEXT NOT NULL,
			triggered_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_read BOOLEAN NOT NULL DEFAULT FALSE
		)`,
	}
}

// indexCreationQueries returns indexes for the hot query paths: trailing
// window scans, unread notification lookups, and monthly trend grouping.
func indexCreationQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_funnel_events_timestamp ON funnel_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_funnel_events_session ON funnel_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_funnel_sessions_updated ON funnel_sessions(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_funnel_sessions_created ON funnel_sessions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_purchased_at ON purchases(purchased_at)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_status ON purchases(status)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_history_unread ON alert_history(is_read)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_history_alert ON alert_history(alert_id)`,
	}
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package database

import (
	"context"
	"fmt"

	"github.com/funnelpulse/funnelpulse/internal/models"
)

// InsertEvent stores one funnel instrumentation event and returns its ID.
func (db *DB) InsertEvent(ctx context.Context, ev *models.RawEvent) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var id int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO funnel_events (session_id, category, timestamp)
		 VALUES (?, ?, ?) RETURNING id`,
		ev.SessionID, ev.Category, ev.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

// UpsertSession inserts a session or refreshes its activity fields. The
// signup timestamp (created_at) is immutable once written so cohort
// assignment never shifts.
func (db *DB) UpsertSession(ctx context.Context, s *models.RawSession) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO funnel_sessions (email, created_at, updated_at, completed, exit_step)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
			updated_at = excluded.updated_at,
			completed = excluded.completed,
			exit_step = excluded.exit_step`,
		s.Email, s.CreatedAt, s.UpdatedAt, s.Completed, s.ExitStep,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", s.Email, err)
	}
	return nil
}

// InsertPurchase stores one purchase record and returns its ID.
func (db *DB) InsertPurchase(ctx context.Context, p *models.RawPurchase) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}
	status := p.Status
	if status == "" {
		status = models.PurchaseCompleted
	}

	var id int64
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO purchases (amount, currency, status, purchased_at)
		 VALUES (?, ?, ?, ?) RETURNING id`,
		p.Amount, currency, string(status), p.PurchasedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert purchase: %w", err)
	}
	return id, nil
}

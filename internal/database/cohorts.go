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

// SessionActivity is the minimal per-user record the cohort retention
// engine consumes: when the user signed up and when they were last seen.
type SessionActivity struct {
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuerySessionActivity lists all users ordered by signup time. The cohort
// engine groups them into signup-month cohorts in memory and keeps the most
// recent months itself, so the query applies no signup cutoff; a cutoff here
// would hide old cohorts entirely on datasets with no recent signups.
func (db *DB) QuerySessionActivity(ctx context.Context) ([]SessionActivity, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT email, created_at, updated_at
		FROM funnel_sessions
		ORDER BY created_at
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query session activity: %w", err)
	}
	defer closeQuietly(rows)

	var activity []SessionActivity
	for rows.Next() {
		var sa SessionActivity
		if err := rows.Scan(&sa.Email, &sa.CreatedAt, &sa.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session activity row: %w", err)
		}
		activity = append(activity, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session activity rows: %w", err)
	}

	return activity, nil
}

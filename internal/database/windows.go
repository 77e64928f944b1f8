// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/funnelpulse/funnelpulse/internal/models"
)

// WindowCounts returns the raw aggregates for a trailing metric window
// starting at since. All three counts are read in one statement so the
// metric calculator sees a consistent snapshot.
func (db *DB) WindowCounts(ctx context.Context, since time.Time) (*models.WindowCounts, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT
			(SELECT COUNT(DISTINCT session_id) FROM funnel_events WHERE timestamp >= ?),
			(SELECT COUNT(*) FROM funnel_sessions WHERE completed AND updated_at >= ?),
			(SELECT COUNT(*) FROM purchases WHERE purchased_at >= ?)
	`

	var counts models.WindowCounts
	err := db.conn.QueryRowContext(ctx, query, since, since, since).Scan(
		&counts.TotalSessions,
		&counts.CompletedSessions,
		&counts.TotalOrders,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query window counts: %w", err)
	}

	return &counts, nil
}

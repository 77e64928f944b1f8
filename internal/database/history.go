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

// ListUnreadNotifications returns unread trigger records joined with their
// rule's display fields, newest first.
func (db *DB) ListUnreadNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit < 1 {
		limit = 20
	}

	query := `
		SELECT h.id, h.alert_id, h.metric_value, h.threshold_value, h.message,
		       h.triggered_at, h.is_read, r.name, r.metric_type
		FROM alert_history h
		JOIN alert_rules r ON r.id = h.alert_id
		WHERE NOT h.is_read
		ORDER BY h.triggered_at DESC, h.id DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer closeQuietly(rows)

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID, &n.AlertID, &n.MetricValue, &n.ThresholdValue, &n.Message,
			&n.TriggeredAt, &n.IsRead, &n.RuleName, &n.MetricType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// UnreadNotificationCount returns the number of unread trigger records.
func (db *DB) UnreadNotificationCount(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alert_history WHERE NOT is_read`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkAllNotificationsRead marks every unread record read and returns how
// many were affected.
func (db *DB) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE alert_history SET is_read = TRUE WHERE NOT is_read`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read mark-read result: %w", err)
	}

	return affected, nil
}

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

// RevenueTotals holds the scalar revenue aggregates read in one pass.
type RevenueTotals struct {
	TotalRevenue  float64
	PeriodRevenue float64
	MRR           float64
	AOV           float64
	Refunds       models.RefundSummary
}

// QueryRevenueTotals reads all scalar revenue aggregates in a single
// statement. periodStart bounds the requested window; mrrStart is the
// trailing-30-day cutoff for the MRR approximation.
func (db *DB) QueryRevenueTotals(ctx context.Context, periodStart, mrrStart time.Time) (*RevenueTotals, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed' AND purchased_at >= ?), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed' AND purchased_at >= ?), 0),
			COALESCE(AVG(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'refunded'), 0),
			COUNT(*) FILTER (WHERE status = 'refunded')
		FROM purchases
	`

	var totals RevenueTotals
	err := db.conn.QueryRowContext(ctx, query, periodStart, mrrStart).Scan(
		&totals.TotalRevenue,
		&totals.PeriodRevenue,
		&totals.MRR,
		&totals.AOV,
		&totals.Refunds.Total,
		&totals.Refunds.Count,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue totals: %w", err)
	}

	return &totals, nil
}

// QueryMonthlyRevenue groups completed purchases since from by calendar
// month. Months without purchases produce no row; the analytics layer
// zero-fills the trend.
func (db *DB) QueryMonthlyRevenue(ctx context.Context, from time.Time) ([]models.MonthRevenue, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT
			strftime(purchased_at, '%Y-%m') AS month,
			SUM(amount) AS revenue,
			COUNT(*) AS purchase_count
		FROM purchases
		WHERE status = 'completed' AND purchased_at >= ?
		GROUP BY month
		ORDER BY month
	`

	rows, err := db.conn.QueryContext(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly revenue: %w", err)
	}
	defer closeQuietly(rows)

	var trend []models.MonthRevenue
	for rows.Next() {
		var m models.MonthRevenue
		if err := rows.Scan(&m.Month, &m.Revenue, &m.PurchaseCount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly revenue row: %w", err)
		}
		trend = append(trend, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly revenue rows: %w", err)
	}

	return trend, nil
}

// QueryUserActivity returns the total distinct users (sessions) and the
// subset active since activeSince. These are the churn rate inputs.
func (db *DB) QueryUserActivity(ctx context.Context, activeSince time.Time) (total, active int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE updated_at >= ?)
		FROM funnel_sessions
	`

	if err := db.conn.QueryRowContext(ctx, query, activeSince).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("failed to query user activity: %w", err)
	}

	return total, active, nil
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/funnelpulse/funnelpulse/internal/config"
	"github.com/funnelpulse/funnelpulse/internal/database"
	"github.com/funnelpulse/funnelpulse/internal/logging"
	"github.com/funnelpulse/funnelpulse/internal/metrics"
	"github.com/funnelpulse/funnelpulse/internal/models"
)

// trendMonths is the span of the revenue trend.
const trendMonths = 12

// churnWindow defines "active" for churn and MRR purposes.
const churnWindow = 30 * 24 * time.Hour

// Service computes analytics overviews on top of the storage layer.
type Service struct {
	db  *database.DB
	cfg *config.AnalyticsConfig
}

// NewService creates an analytics service.
func NewService(db *database.DB, cfg *config.AnalyticsConfig) *Service {
	return &Service{db: db, cfg: cfg}
}

// ClampWindowDays normalizes a requested window to [1, MaxWindowDays],
// substituting the configured default for non-positive values.
func (s *Service) ClampWindowDays(days int) int {
	if days <= 0 {
		return s.cfg.DefaultWindowDays
	}
	if days > s.cfg.MaxWindowDays {
		return s.cfg.MaxWindowDays
	}
	return days
}

// ComputeWindowMetrics reads the trailing window counts and derives the
// health metric set. This is the alert engine's metric source.
func (s *Service) ComputeWindowMetrics(ctx context.Context, windowDays int) (models.MetricSet, error) {
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	counts, err := s.db.WindowCounts(ctx, since)
	if err != nil {
		return models.MetricSet{}, fmt.Errorf("window metrics: %w", err)
	}

	return ComputeMetrics(counts), nil
}

// GetAnalytics computes the full overview: revenue aggregates, the 12-month
// trend, cohort retention, and churn. Sub-queries run concurrently under a
// shared deadline; any failure fails the whole overview rather than
// returning partial data dressed up as zeros.
func (s *Service) GetAnalytics(ctx context.Context, days int) (*models.AnalyticsOverview, error) {
	days = s.ClampWindowDays(days)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -days)
	activeSince := now.Add(-churnWindow)
	trendStart := monthStart(now).AddDate(0, -(trendMonths - 1), 0)

	started := time.Now()
	defer func() {
		metrics.AnalyticsDuration.Observe(time.Since(started).Seconds())
	}()

	var (
		totals   *database.RevenueTotals
		trend    []models.MonthRevenue
		activity []database.SessionActivity
		churn    float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	g.Go(func() error {
		var err error
		totals, err = s.db.QueryRevenueTotals(gctx, periodStart, activeSince)
		if err != nil {
			return fmt.Errorf("revenue totals: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		trend, err = s.db.QueryMonthlyRevenue(gctx, trendStart)
		if err != nil {
			return fmt.Errorf("revenue trend: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		activity, err = s.db.QuerySessionActivity(gctx)
		if err != nil {
			return fmt.Errorf("cohort activity: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		total, active, err := s.db.QueryUserActivity(gctx, activeSince)
		if err != nil {
			return fmt.Errorf("churn inputs: %w", err)
		}
		if total > 0 {
			churn = float64(total-active) / float64(total) * 100
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.AnalyticsErrors.Inc()
		logging.Ctx(ctx).Error().Err(err).Int("days", days).Msg("analytics overview failed")
		return nil, err
	}

	overview := &models.AnalyticsOverview{
		WindowDays: days,
		Revenue: models.RevenueAnalytics{
			TotalRevenue:  totals.TotalRevenue,
			PeriodRevenue: totals.PeriodRevenue,
			MRR:           totals.MRR,
			AOV:           totals.AOV,
			Trend:         zeroFillTrend(trend, now),
			Refunds:       totals.Refunds,
		},
		Retention:   ComputeCohortRetention(activity),
		ChurnRate:   churn,
		Email:       models.EmailSummary{Configured: false, Status: "not computed"},
		GeneratedAt: now,
	}

	return overview, nil
}

// monthStart truncates a time to the first instant of its calendar month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// zeroFillTrend expands sparse month rows into a dense trailing-12-month
// series, oldest first, with zero rows for months without purchases.
func zeroFillTrend(sparse []models.MonthRevenue, now time.Time) []models.MonthRevenue {
	byMonth := make(map[string]models.MonthRevenue, len(sparse))
	for _, m := range sparse {
		byMonth[m.Month] = m
	}

	dense := make([]models.MonthRevenue, 0, trendMonths)
	cursor := monthStart(now).AddDate(0, -(trendMonths - 1), 0)
	for i := 0; i < trendMonths; i++ {
		key := cursor.Format("2006-01")
		if m, ok := byMonth[key]; ok {
			dense = append(dense, m)
		} else {
			dense = append(dense, models.MonthRevenue{Month: key})
		}
		cursor = cursor.AddDate(0, 1, 0)
	}

	return dense
}

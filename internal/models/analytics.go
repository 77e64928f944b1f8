// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package models

import "time"

// MonthRevenue is one point of the 12-month revenue trend.
type MonthRevenue struct {
	// Month is the calendar month in YYYY-MM form.
	Month         string  `json:"month"`
	Revenue       float64 `json:"revenue"`
	PurchaseCount int64   `json:"purchase_count"`
}

// RefundSummary totals refunded purchases.
type RefundSummary struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// RevenueAnalytics is the revenue/trend aggregator output.
type RevenueAnalytics struct {
	// TotalRevenue sums completed purchases over all time.
	TotalRevenue float64 `json:"total_revenue"`

	// PeriodRevenue sums completed purchases inside the requested window.
	PeriodRevenue float64 `json:"period_revenue"`

	// MRR approximates monthly recurring revenue as trailing-30-day
	// completed revenue, independent of the requested window.
	MRR float64 `json:"mrr"`

	// AOV is average order value over all completed purchases.
	AOV float64 `json:"aov"`

	// Trend covers the trailing 12 calendar months, oldest first, with
	// zero-filled months where no purchases occurred.
	Trend []MonthRevenue `json:"trend"`

	Refunds RefundSummary `json:"refunds"`
}

// OffsetRetention is one month-offset point on a cohort's retention curve.
type OffsetRetention struct {
	MonthOffset   int     `json:"month_offset"`
	RetainedUsers int     `json:"retained_users"`
	RetentionRate float64 `json:"retention_rate"`
}

// CohortRetention is the retention curve for one signup-month cohort,
// covering offsets 0 through 6.
type CohortRetention struct {
	// CohortMonth is the signup month in YYYY-MM form.
	CohortMonth string            `json:"cohort_month"`
	CohortStart time.Time         `json:"cohort_start"`
	TotalUsers  int               `json:"total_users"`
	Retention   []OffsetRetention `json:"retention"`
}

// EmailSummary is a placeholder for the email-campaign metrics block of the
// analytics overview. Campaign analytics live in the host application; the
// core reports only that they are not computed here.
type EmailSummary struct {
	Configured bool   `json:"configured"`
	Status     string `json:"status"`
}

// AnalyticsOverview is the full "all metrics" view: revenue, cohort
// retention, and churn, computed in one consistent pass over the stores.
type AnalyticsOverview struct {
	WindowDays  int               `json:"window_days"`
	Revenue     RevenueAnalytics  `json:"revenue"`
	Retention   []CohortRetention `json:"retention"`
	ChurnRate   float64           `json:"churn_rate"`
	Email       EmailSummary      `json:"email"`
	GeneratedAt time.Time         `json:"generated_at"`
}

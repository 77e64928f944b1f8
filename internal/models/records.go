// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

// Package models defines the shared data types for the FunnelPulse analytics
// engine: raw behavioral records produced by external instrumentation, alert
// rule definitions, and the derived analytics payloads returned by the API.
package models

import "time"

// PurchaseStatus is the lifecycle state of a purchase record.
type PurchaseStatus string

const (
	PurchaseCompleted PurchaseStatus = "completed"
	PurchasePending   PurchaseStatus = "pending"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// RawEvent is a single funnel instrumentation event. Events are produced by
// the external webhook layer and are read-only to the analytics core.
type RawEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// RawSession is a funnel session keyed by the visitor's email address.
// CreatedAt is the signup timestamp and anchors cohort assignment;
// UpdatedAt tracks the most recent activity and drives retention/churn.
type RawSession struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Completed bool      `json:"completed"`
	ExitStep  *int      `json:"exit_step,omitempty"`
}

// RawPurchase is a transactional record. Amount is carried in the currency's
// major unit; only completed purchases count toward revenue.
type RawPurchase struct {
	ID          int64          `json:"id"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	Status      PurchaseStatus `json:"status"`
	PurchasedAt time.Time      `json:"purchased_at"`
}

// WindowCounts holds the raw aggregates for a trailing metric window.
// These are the inputs to the metric calculator.
type WindowCounts struct {
	// TotalSessions is the count of distinct session IDs touched by events
	// inside the window.
	TotalSessions int64 `json:"total_sessions"`

	// CompletedSessions is the count of sessions marked completed whose last
	// activity falls inside the window.
	CompletedSessions int64 `json:"completed_sessions"`

	// TotalOrders is the count of purchases placed inside the window,
	// regardless of status.
	TotalOrders int64 `json:"total_orders"`
}

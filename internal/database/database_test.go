// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package database

import (
	"context"
	"testing"
	"time"

	"github.com/funnelpulse/funnelpulse/internal/config"
	"github.com/funnelpulse/funnelpulse/internal/models"
)

// testDBSemaphore serializes DuckDB creation. Concurrent CGO calls from
// parallel tests can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory test database. The semaphore is held for
// the whole test lifecycle so only one test owns a DuckDB connection at a
// time.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return db
}

// seedSession inserts a session row directly.
func seedSession(t *testing.T, db *DB, email string, createdAt, updatedAt time.Time, completed bool) {
	t.Helper()
	err := db.UpsertSession(context.Background(), &models.RawSession{
		Email:     email,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Completed: completed,
	})
	if err != nil {
		t.Fatalf("failed to seed session %s: %v", email, err)
	}
}

// seedEvent inserts an event row directly.
func seedEvent(t *testing.T, db *DB, sessionID string, ts time.Time) {
	t.Helper()
	_, err := db.InsertEvent(context.Background(), &models.RawEvent{
		SessionID: sessionID,
		Category:  "funnel",
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("failed to seed event for %s: %v", sessionID, err)
	}
}

// seedPurchase inserts a purchase row directly.
func seedPurchase(t *testing.T, db *DB, amount float64, status models.PurchaseStatus, at time.Time) {
	t.Helper()
	_, err := db.InsertPurchase(context.Background(), &models.RawPurchase{
		Amount:      amount,
		Status:      status,
		PurchasedAt: at,
	})
	if err != nil {
		t.Fatalf("failed to seed purchase: %v", err)
	}
}

func TestNewAndPing(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	// Running initialization again against the live schema must not fail.
	if err := db.initialize(); err != nil {
		t.Errorf("second initialize failed: %v", err)
	}
}

func TestInsertEventReturnsIncreasingIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.InsertEvent(ctx, &models.RawEvent{SessionID: "s1", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	second, err := db.InsertEvent(ctx, &models.RawEvent{SessionID: "s2", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}

	if second <= first {
		t.Errorf("expected increasing IDs, got %d then %d", first, second)
	}
}

func TestUpsertSessionPreservesCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedSession(t, db, "user@example.com", created, created, false)

	// A later upsert refreshes activity but must not move the signup time.
	later := created.Add(48 * time.Hour)
	seedSession(t, db, "user@example.com", later, later, true)

	activity, err := db.QuerySessionActivity(ctx)
	if err != nil {
		t.Fatalf("QuerySessionActivity failed: %v", err)
	}
	if len(activity) != 1 {
		t.Fatalf("expected 1 session, got %d", len(activity))
	}
	if !activity[0].CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want original %v", activity[0].CreatedAt, created)
	}
	if !activity[0].UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want refreshed %v", activity[0].UpdatedAt, later)
	}
}

func TestWindowCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -7)

	// Two distinct sessions inside the window, one outside. One session has
	// two events and must count once.
	seedEvent(t, db, "in-1", now.Add(-time.Hour))
	seedEvent(t, db, "in-1", now.Add(-2*time.Hour))
	seedEvent(t, db, "in-2", now.Add(-24*time.Hour))
	seedEvent(t, db, "old", now.AddDate(0, 0, -10))

	// One completed session active in window, one completed but stale, one
	// active but incomplete.
	seedSession(t, db, "done@example.com", now.AddDate(0, -1, 0), now.Add(-time.Hour), true)
	seedSession(t, db, "stale@example.com", now.AddDate(0, -2, 0), now.AddDate(0, 0, -20), true)
	seedSession(t, db, "open@example.com", now.AddDate(0, 0, -3), now.Add(-time.Hour), false)

	// Orders count regardless of status inside the window.
	seedPurchase(t, db, 50, models.PurchaseCompleted, now.Add(-time.Hour))
	seedPurchase(t, db, 30, models.PurchasePending, now.Add(-2*time.Hour))
	seedPurchase(t, db, 20, models.PurchaseCompleted, now.AddDate(0, 0, -10))

	counts, err := db.WindowCounts(ctx, since)
	if err != nil {
		t.Fatalf("WindowCounts failed: %v", err)
	}

	if counts.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", counts.TotalSessions)
	}
	if counts.CompletedSessions != 1 {
		t.Errorf("CompletedSessions = %d, want 1", counts.CompletedSessions)
	}
	if counts.TotalOrders != 2 {
		t.Errorf("TotalOrders = %d, want 2", counts.TotalOrders)
	}
}

func TestWindowCountsEmptyDatabase(t *testing.T) {
	db := setupTestDB(t)

	counts, err := db.WindowCounts(context.Background(), time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("WindowCounts failed: %v", err)
	}

	if counts.TotalSessions != 0 || counts.CompletedSessions != 0 || counts.TotalOrders != 0 {
		t.Errorf("expected all-zero counts, got %+v", counts)
	}
}

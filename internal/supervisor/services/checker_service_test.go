// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/funnelpulse/funnelpulse/internal/models"
)

// countingChecker records check invocations and can be told to fail.
type countingChecker struct {
	calls atomic.Int64
	err   error
}

func (c *countingChecker) CheckAlerts(_ context.Context) ([]models.TriggeredAlert, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []models.TriggeredAlert{}, nil
}

func TestCheckerServiceRunsPeriodically(t *testing.T) {
	checker := &countingChecker{}
	svc := NewCheckerService(checker, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want context.DeadlineExceeded", err)
	}

	if got := checker.calls.Load(); got < 2 {
		t.Errorf("checker ran %d times, want at least 2", got)
	}
}

func TestCheckerServiceSurvivesCheckFailures(t *testing.T) {
	checker := &countingChecker{err: errors.New("store unavailable")}
	svc := NewCheckerService(checker, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// A failing check must not terminate Serve early; only the context does.
	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want context.DeadlineExceeded", err)
	}
	if got := checker.calls.Load(); got < 2 {
		t.Errorf("checker ran %d times after failures, want retries", got)
	}
}

func TestCheckerServiceIdlesWithoutInterval(t *testing.T) {
	checker := &countingChecker{}
	svc := NewCheckerService(checker, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve = %v, want context.DeadlineExceeded", err)
	}
	if got := checker.calls.Load(); got != 0 {
		t.Errorf("checker ran %d times with interval 0, want 0", got)
	}
}

func TestCheckerServiceString(t *testing.T) {
	svc := NewCheckerService(&countingChecker{}, time.Minute)
	if svc.String() != "alert-checker" {
		t.Errorf("String() = %q, want alert-checker", svc.String())
	}
}

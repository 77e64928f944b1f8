// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package throttle

import (
	"errors"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, ttl time.Duration) *Limiter {
	t.Helper()

	l, err := New("", ttl)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Errorf("failed to close limiter: %v", err)
		}
	})

	return l
}

func TestAllowFirstCallWins(t *testing.T) {
	l := newTestLimiter(t, time.Minute)

	allowed, err := l.Allow("caller-1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !allowed {
		t.Error("first call should be allowed")
	}

	allowed, err = l.Allow("caller-1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Error("second call inside the window should be rejected")
	}
}

func TestAllowIndependentKeys(t *testing.T) {
	l := newTestLimiter(t, time.Minute)

	if allowed, _ := l.Allow("a"); !allowed {
		t.Error("key a first call should be allowed")
	}
	if allowed, _ := l.Allow("b"); !allowed {
		t.Error("key b is independent of key a")
	}
}

func TestAllowAfterExpiry(t *testing.T) {
	l := newTestLimiter(t, 50*time.Millisecond)

	if allowed, _ := l.Allow("k"); !allowed {
		t.Fatal("first call should be allowed")
	}

	time.Sleep(120 * time.Millisecond)

	allowed, err := l.Allow("k")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !allowed {
		t.Error("call after TTL expiry should be allowed")
	}
}

func TestZeroTTLDisablesThrottling(t *testing.T) {
	l := newTestLimiter(t, 0)

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow("k")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Error("zero TTL should admit every call")
		}
	}
}

func TestReset(t *testing.T) {
	l := newTestLimiter(t, time.Minute)

	if allowed, _ := l.Allow("k"); !allowed {
		t.Fatal("first call should be allowed")
	}
	if err := l.Reset("k"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if allowed, _ := l.Allow("k"); !allowed {
		t.Error("call after Reset should be allowed")
	}
}

func TestClosedLimiter(t *testing.T) {
	l, err := New("", time.Minute)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := l.Allow("k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Allow on closed limiter = %v, want ErrClosed", err)
	}
	// Second close is a no-op.
	if err := l.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}

func TestPersistentPath(t *testing.T) {
	dir := t.TempDir()

	l, err := New(dir, time.Minute)
	if err != nil {
		t.Fatalf("failed to create file-backed limiter: %v", err)
	}

	if allowed, _ := l.Allow("k"); !allowed {
		t.Error("first call should be allowed")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen: the claim survives the restart.
	l2, err := New(dir, time.Minute)
	if err != nil {
		t.Fatalf("failed to reopen limiter: %v", err)
	}
	defer func() {
		if err := l2.Close(); err != nil {
			t.Errorf("failed to close reopened limiter: %v", err)
		}
	}()

	allowed, err := l2.Allow("k")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Error("window should survive a restart with a file-backed store")
	}
}

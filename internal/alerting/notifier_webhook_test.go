// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package alerting

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/funnelpulse/funnelpulse/internal/models"
)

func testAlert() *models.TriggeredAlert {
	return &models.TriggeredAlert{
		Rule: models.AlertRule{
			ID:         1,
			Name:       "low completion",
			MetricType: "completion_rate",
			Condition:  models.ConditionBelow,
			Threshold:  50,
		},
		MetricValue: 40,
		Message:     "low completion: completion rate below 50% (current value: 40%)",
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var gotBody atomic.Value
	var gotHeader atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		gotHeader.Store(r.Header.Get("X-Auth"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(WebhookConfig{
		WebhookURL: server.URL,
		Headers:    map[string]string{"X-Auth": "secret"},
	})

	if !n.Enabled() {
		t.Fatal("notifier with URL should be enabled")
	}

	if err := n.Send(context.Background(), testAlert()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	body, _ := gotBody.Load().(string)
	for _, want := range []string{`"event_type":"funnel_alert"`, `"source":"funnelpulse"`, "low completion"} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %s: %s", want, body)
		}
	}
	if header, _ := gotHeader.Load().(string); header != "secret" {
		t.Errorf("custom header = %q, want secret", header)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(WebhookConfig{WebhookURL: server.URL})

	err := n.Send(context.Background(), testAlert())
	if err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestWebhookNotifierDisabledWithoutURL(t *testing.T) {
	n := NewWebhookNotifier(WebhookConfig{})

	if n.Enabled() {
		t.Error("notifier without URL should be disabled")
	}
	if err := n.Send(context.Background(), testAlert()); err != nil {
		t.Errorf("Send on disabled notifier should be a no-op, got %v", err)
	}
}

func TestWebhookNotifierSetEnabled(t *testing.T) {
	n := NewWebhookNotifier(WebhookConfig{WebhookURL: "http://example.invalid/hook"})

	n.SetEnabled(false)
	if n.Enabled() {
		t.Error("SetEnabled(false) should disable the notifier")
	}

	n.SetEnabled(true)
	if !n.Enabled() {
		t.Error("SetEnabled(true) should re-enable the notifier")
	}
}

func TestWebhookBreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	n := NewWebhookNotifier(WebhookConfig{WebhookURL: server.URL})

	// Drive enough failures to trip the breaker (>=5 requests, 100% failure).
	for i := 0; i < 6; i++ {
		_ = n.Send(context.Background(), testAlert())
	}
	tripped := calls.Load()

	// With the circuit open, no further HTTP calls reach the endpoint.
	for i := 0; i < 3; i++ {
		if err := n.Send(context.Background(), testAlert()); err == nil {
			t.Error("expected rejection while breaker is open")
		}
	}
	if calls.Load() != tripped {
		t.Errorf("endpoint called %d times after trip, want %d", calls.Load(), tripped)
	}
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package alerting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/funnelpulse/funnelpulse/internal/logging"
	"github.com/funnelpulse/funnelpulse/internal/metrics"
	"github.com/funnelpulse/funnelpulse/internal/models"
)

// WebhookNotifier delivers triggered alerts to a webhook endpoint as JSON.
// Deliveries run through a circuit breaker so a dead endpoint cannot slow
// down check runs with repeated timeouts.
type WebhookNotifier struct {
	webhookURL string
	headers    map[string]string
	client     *http.Client
	enabled    bool
	mu         sync.RWMutex

	cb *gobreaker.CircuitBreaker[struct{}]
}

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	WebhookURL string
	Headers    map[string]string
	Timeout    time.Duration
}

// WebhookPayload is the JSON body sent to the webhook endpoint.
type WebhookPayload struct {
	Alert     *models.TriggeredAlert `json:"alert"`
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
}

// NewWebhookNotifier creates a webhook notifier. An empty URL yields a
// disabled notifier.
//
// Breaker tuning: opens at a 60% failure rate over at least 5 requests,
// waits 2 minutes before probing, allows 2 probes half-open.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	headers := make(map[string]string)
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "alert-webhook",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("webhook circuit breaker state change")
			metrics.WebhookBreakerState.Set(breakerStateValue(to))
		},
	})

	return &WebhookNotifier{
		webhookURL: cfg.WebhookURL,
		headers:    headers,
		enabled:    cfg.WebhookURL != "",
		client:     &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Enabled reports whether the notifier has a target to deliver to.
func (n *WebhookNotifier) Enabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled && n.webhookURL != ""
}

// SetEnabled enables or disables the notifier.
func (n *WebhookNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send delivers one triggered alert through the circuit breaker.
func (n *WebhookNotifier) Send(ctx context.Context, alert *models.TriggeredAlert) error {
	n.mu.RLock()
	webhookURL := n.webhookURL
	headers := make(map[string]string, len(n.headers))
	for k, v := range n.headers {
		headers[k] = v
	}
	n.mu.RUnlock()

	if webhookURL == "" {
		return nil
	}

	_, err := n.cb.Execute(func() (struct{}, error) {
		return struct{}{}, n.deliver(ctx, webhookURL, headers, alert)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.WebhookDeliveries.WithLabelValues("breaker_open").Inc()
			return fmt.Errorf("webhook delivery rejected: %w", err)
		}
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		return err
	}

	metrics.WebhookDeliveries.WithLabelValues("success").Inc()
	return nil
}

// deliver performs one HTTP POST to the webhook endpoint.
func (n *WebhookNotifier) deliver(ctx context.Context, url string, headers map[string]string, alert *models.TriggeredAlert) error {
	payload := WebhookPayload{
		Alert:     alert,
		EventType: "funnel_alert",
		Timestamp: time.Now().UTC(),
		Source:    "funnelpulse",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// breakerStateValue maps gobreaker states onto the gauge scale.
func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/funnelpulse/funnelpulse/internal/alerting"
	"github.com/funnelpulse/funnelpulse/internal/analytics"
	"github.com/funnelpulse/funnelpulse/internal/config"
	"github.com/funnelpulse/funnelpulse/internal/database"
	"github.com/funnelpulse/funnelpulse/internal/throttle"
)

func setupServer(t *testing.T, throttleTTL time.Duration) (http.Handler, *database.DB) {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	svc := analytics.NewService(db, &config.AnalyticsConfig{
		DefaultWindowDays: 30,
		MaxWindowDays:     365,
		QueryTimeout:      30 * time.Second,
		Concurrency:       4,
	})
	engine := alerting.NewEngine(db, svc, &config.AlertingConfig{
		WindowDays: 7,
		Cooldown:   time.Hour,
	})

	var limiter *throttle.Limiter
	if throttleTTL > 0 {
		limiter, err = throttle.New("", throttleTTL)
		if err != nil {
			t.Fatalf("failed to create limiter: %v", err)
		}
		t.Cleanup(func() {
			if err := limiter.Close(); err != nil {
				t.Errorf("failed to close limiter: %v", err)
			}
		})
	}

	apiCfg := &config.APIConfig{
		DefaultPageSize: 20,
		MaxPageSize:     100,
	}
	handler := NewHandler(db, svc, engine, limiter, apiCfg)

	return NewRouter(handler, apiCfg), db
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope APIResponse
	if rec.Code != http.StatusNoContent && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("failed to decode envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, envelope
}

func TestCreateRuleValidationBeforeStore(t *testing.T) {
	router, db := setupServer(t, 0)

	// Missing threshold and condition: rejected with field details.
	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/alert-rules",
		`{"name": "incomplete", "metric_type": "completion_rate"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidation {
		t.Fatalf("error = %+v, want code %s", envelope.Error, ErrCodeValidation)
	}

	// The store was never touched.
	rules, err := db.ListRules(context.Background())
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("store has %d rules after rejected create, want 0", len(rules))
	}
}

func TestCreateRuleRejectsUnknownCondition(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/alert-rules",
		`{"name": "r", "metric_type": "completion_rate", "condition": "between", "threshold": 50}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidation {
		t.Errorf("error code = %+v, want %s", envelope.Error, ErrCodeValidation)
	}
}

func TestCreateAndListRules(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/alert-rules",
		`{"name": "low completion", "metric_type": "completion_rate", "condition": "below", "threshold": 50}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
	if !envelope.Success {
		t.Error("envelope.Success = false, want true")
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/v1/alert-rules", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", envelope.Data)
	}
	if count, _ := data["count"].(float64); count != 1 {
		t.Errorf("count = %v, want 1", data["count"])
	}
}

func TestCreateRuleZeroThresholdIsValid(t *testing.T) {
	router, _ := setupServer(t, 0)

	// An explicit 0 threshold is a legal value, not a missing field.
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/alert-rules",
		`{"name": "any completion", "metric_type": "completion_rate", "condition": "above", "threshold": 0}`)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateRuleNotFound(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, envelope := doJSON(t, router, http.MethodPatch, "/api/v1/alert-rules/9999",
		`{"threshold": 10}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want code %s", envelope.Error, ErrCodeNotFound)
	}
}

func TestDeleteRuleLifecycle(t *testing.T) {
	router, db := setupServer(t, 0)

	_, envelope := doJSON(t, router, http.MethodPost, "/api/v1/alert-rules",
		`{"name": "doomed", "metric_type": "daily_sessions", "condition": "above", "threshold": 100}`)
	created, _ := envelope.Data.(map[string]any)
	id, _ := created["id"].(float64)
	if id == 0 {
		t.Fatalf("created rule has no id: %+v", envelope.Data)
	}
	rulePath := fmt.Sprintf("/api/v1/alert-rules/%d", int64(id))

	rec, _ := doJSON(t, router, http.MethodDelete, rulePath, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rules, err := db.ListRules(context.Background())
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("rules remaining = %d, want 0", len(rules))
	}

	// Second delete reports not found.
	rec, _ = doJSON(t, router, http.MethodDelete, rulePath, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestRuleIDMustBePositiveInteger(t *testing.T) {
	router, _ := setupServer(t, 0)

	for _, path := range []string{"/api/v1/alert-rules/abc", "/api/v1/alert-rules/-1"} {
		rec, _ := doJSON(t, router, http.MethodDelete, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("delete %s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestGetAnalyticsEmptyStore(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/v1/analytics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", envelope.Data)
	}
	if wd, _ := data["window_days"].(float64); wd != 30 {
		t.Errorf("window_days = %v, want default 30", data["window_days"])
	}
}

func TestGetAnalyticsRejectsMalformedDays(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/v1/analytics?days=soon", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %+v, want code %s", envelope.Error, ErrCodeBadRequest)
	}
}

func TestCheckAlertsThrottledPerCaller(t *testing.T) {
	router, _ := setupServer(t, time.Minute)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/alerts/check", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("first check status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/alerts/check", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second check status = %d, want 429", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v, want code %s", envelope.Error, ErrCodeTooManyRequests)
	}
}

func TestCheckAlertsWithoutLimiter(t *testing.T) {
	router, _ := setupServer(t, 0)

	for i := 0; i < 3; i++ {
		rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/alerts/check", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("check %d status = %d, want 200", i, rec.Code)
		}
		data, _ := envelope.Data.(map[string]any)
		if count, _ := data["count"].(float64); count != 0 {
			t.Errorf("check %d count = %v, want 0", i, data["count"])
		}
	}
}

func TestNotificationEndpoints(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/v1/notifications", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	data, _ := envelope.Data.(map[string]any)
	if count, _ := data["count"].(float64); count != 0 {
		t.Errorf("count = %v, want 0", data["count"])
	}

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/v1/notifications/count", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("count status = %d, want 200", rec.Code)
	}
	data, _ = envelope.Data.(map[string]any)
	if unread, _ := data["unread"].(float64); unread != 0 {
		t.Errorf("unread = %v, want 0", data["unread"])
	}

	rec, envelope = doJSON(t, router, http.MethodPost, "/api/v1/notifications/read-all", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read-all status = %d, want 200", rec.Code)
	}
	data, _ = envelope.Data.(map[string]any)
	if marked, _ := data["marked"].(float64); marked != 0 {
		t.Errorf("marked = %v, want 0", data["marked"])
	}
}

func TestIngestEndpoints(t *testing.T) {
	router, db := setupServer(t, 0)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/ingest/events",
		`{"session_id": "s-1", "category": "landing"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("event status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/ingest/sessions",
		`{"email": "visitor@example.com", "completed": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/ingest/purchases",
		`{"amount": 49.99}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("purchase status = %d, want 201\nbody: %s", rec.Code, rec.Body.String())
	}

	since := time.Now().UTC().Add(-time.Hour)
	counts, err := db.WindowCounts(context.Background(), since)
	if err != nil {
		t.Fatalf("WindowCounts failed: %v", err)
	}
	if counts.TotalSessions != 1 || counts.CompletedSessions != 1 || counts.TotalOrders != 1 {
		t.Errorf("counts = %+v, want 1/1/1", counts)
	}
}

func TestIngestSessionRejectsBadEmail(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/ingest/sessions",
		`{"email": "not-an-email"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != ErrCodeValidation {
		t.Errorf("error = %+v, want code %s", envelope.Error, ErrCodeValidation)
	}
}

func TestIngestPurchaseRejectsNegativeAmount(t *testing.T) {
	router, _ := setupServer(t, 0)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/ingest/purchases",
		`{"amount": -5}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := setupServer(t, 0)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		rec, envelope := doJSON(t, router, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
		if !envelope.Success {
			t.Errorf("%s success = false, want true", path)
		}
	}
}

func TestRequestIDEchoedAndGenerated(t *testing.T) {
	router, _ := setupServer(t, 0)

	// Caller-supplied ID is propagated.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-abc-123" {
		t.Errorf("echoed request ID = %q, want req-abc-123", got)
	}
	if !strings.Contains(rec.Body.String(), "req-abc-123") {
		t.Error("request ID missing from response meta")
	}

	// Absent ID gets generated.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request ID header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "funnelpulse_") {
		t.Error("metrics output missing funnelpulse collectors")
	}
}

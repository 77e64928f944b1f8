// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package api

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/funnelpulse/funnelpulse/internal/alerting"
	"github.com/funnelpulse/funnelpulse/internal/analytics"
	"github.com/funnelpulse/funnelpulse/internal/config"
	"github.com/funnelpulse/funnelpulse/internal/database"
	"github.com/funnelpulse/funnelpulse/internal/logging"
	"github.com/funnelpulse/funnelpulse/internal/models"
	"github.com/funnelpulse/funnelpulse/internal/throttle"
)

// Handler owns the HTTP endpoints and their collaborators.
type Handler struct {
	db        *database.DB
	analytics *analytics.Service
	engine    *alerting.Engine
	limiter   *throttle.Limiter
	cfg       *config.APIConfig
}

// NewHandler wires the endpoint collaborators together. The limiter may be
// nil, which leaves manual alert checks unthrottled.
func NewHandler(db *database.DB, svc *analytics.Service, engine *alerting.Engine, limiter *throttle.Limiter, cfg *config.APIConfig) *Handler {
	return &Handler{
		db:        db,
		analytics: svc,
		engine:    engine,
		limiter:   limiter,
		cfg:       cfg,
	}
}

// GetAnalytics serves the full analytics overview. The days parameter is
// clamped to the configured window bounds rather than rejected.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	days, ok := queryInt(rw, r, "days", 0)
	if !ok {
		return
	}

	overview, err := h.analytics.GetAnalytics(r.Context(), days)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Analytics overview failed")
		rw.DatabaseError("failed to compute analytics overview")
		return
	}

	rw.Success(overview)
}

// CheckAlerts runs one evaluation pass over all active rules. Calls are
// spaced per caller IP through the TTL limiter; a rejected call reports 429
// without touching the stores.
func (h *Handler) CheckAlerts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.limiter != nil {
		allowed, err := h.limiter.Allow("check:" + clientIP(r))
		if err != nil && !errors.Is(err, throttle.ErrClosed) {
			logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Throttle check failed")
			rw.InternalError("failed to apply check throttle")
			return
		}
		if err == nil && !allowed {
			rw.TooManyRequests("alert check already ran recently, retry later")
			return
		}
	}

	triggered, err := h.engine.CheckAlerts(r.Context())
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Alert check failed")
		rw.DatabaseError("alert check failed")
		return
	}

	rw.Success(map[string]any{
		"triggered": triggered,
		"count":     len(triggered),
	})
}

// ListNotifications serves the unread notification queue, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, ok := queryInt(rw, r, "limit", h.cfg.DefaultPageSize)
	if !ok {
		return
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}

	notifications, err := h.db.ListUnreadNotifications(r.Context(), limit)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Notification list failed")
		rw.DatabaseError("failed to list notifications")
		return
	}

	rw.Success(map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// NotificationCount serves the unread count.
func (h *Handler) NotificationCount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	count, err := h.db.UnreadNotificationCount(r.Context())
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Notification count failed")
		rw.DatabaseError("failed to count notifications")
		return
	}

	rw.Success(map[string]any{"unread": count})
}

// MarkAllNotificationsRead flips every unread history row to read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	marked, err := h.db.MarkAllNotificationsRead(r.Context())
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Mark-all-read failed")
		rw.DatabaseError("failed to mark notifications read")
		return
	}

	rw.Success(map[string]any{"marked": marked})
}

// ListRules serves all alert rules, newest first.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	rules, err := h.db.ListRules(r.Context())
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Rule list failed")
		rw.DatabaseError("failed to list alert rules")
		return
	}

	rw.Success(map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// CreateRule validates and persists a new alert rule. Validation runs
// before any store access, so a malformed request never opens a
// transaction.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateRuleRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	rule := &models.AlertRule{
		Name:       req.Name,
		MetricType: req.MetricType,
		Condition:  models.AlertCondition(req.Condition),
		Threshold:  *req.Threshold,
		Category:   req.Category,
		IsActive:   true,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	created, err := h.db.CreateRule(r.Context(), rule)
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Rule create failed")
		rw.DatabaseError("failed to create alert rule")
		return
	}

	rw.Created(created)
}

// UpdateRule applies a partial update to an existing rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := ruleID(rw, r)
	if !ok {
		return
	}

	var req UpdateRuleRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	upd := &database.RuleUpdate{
		Name:      req.Name,
		Threshold: req.Threshold,
		IsActive:  req.IsActive,
	}
	if req.Condition != nil {
		cond := models.AlertCondition(*req.Condition)
		upd.Condition = &cond
	}

	updated, err := h.db.UpdateRule(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			rw.NotFound("alert rule not found")
			return
		}
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Rule update failed")
		rw.DatabaseError("failed to update alert rule")
		return
	}

	rw.Success(updated)
}

// DeleteRule removes a rule together with its history.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := ruleID(rw, r)
	if !ok {
		return
	}

	if err := h.db.DeleteRule(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrRuleNotFound) {
			rw.NotFound("alert rule not found")
			return
		}
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Rule delete failed")
		rw.DatabaseError("failed to delete alert rule")
		return
	}

	rw.NoContent()
}

// IngestEvent records one funnel instrumentation event.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req IngestEventRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	ts, ok := parseTimestamp(rw, "timestamp", req.Timestamp)
	if !ok {
		return
	}

	id, err := h.db.InsertEvent(r.Context(), &models.RawEvent{
		SessionID: req.SessionID,
		Category:  req.Category,
		Timestamp: ts,
	})
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Event ingest failed")
		rw.DatabaseError("failed to record event")
		return
	}

	rw.Created(map[string]any{"id": id})
}

// IngestSession creates or refreshes a funnel session keyed by email.
func (h *Handler) IngestSession(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req IngestSessionRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	createdAt, ok := parseTimestamp(rw, "created_at", req.CreatedAt)
	if !ok {
		return
	}
	updatedAt, ok := parseTimestamp(rw, "updated_at", req.UpdatedAt)
	if !ok {
		return
	}

	err := h.db.UpsertSession(r.Context(), &models.RawSession{
		Email:     req.Email,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Completed: req.Completed,
		ExitStep:  req.ExitStep,
	})
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Session ingest failed")
		rw.DatabaseError("failed to record session")
		return
	}

	rw.Success(map[string]any{"email": req.Email})
}

// IngestPurchase records one purchase.
func (h *Handler) IngestPurchase(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req IngestPurchaseRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	purchasedAt, ok := parseTimestamp(rw, "purchased_at", req.PurchasedAt)
	if !ok {
		return
	}

	id, err := h.db.InsertPurchase(r.Context(), &models.RawPurchase{
		Amount:      *req.Amount,
		Currency:    req.Currency,
		Status:      models.PurchaseStatus(req.Status),
		PurchasedAt: purchasedAt,
	})
	if err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Purchase ingest failed")
		rw.DatabaseError("failed to record purchase")
		return
	}

	rw.Created(map[string]any{"id": id})
}

// Live reports process liveness.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]any{"status": "ok"})
}

// Ready reports readiness by pinging the database.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.db.Ping(r.Context()); err != nil {
		logging.CtxErr(r.Context(), err).Str("component", "api").Msg("Readiness ping failed")
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavail, "database not reachable")
		return
	}

	rw.Success(map[string]any{"status": "ready"})
}

// ruleID extracts and parses the {id} path parameter.
func ruleID(rw *ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		rw.BadRequest("rule id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseTimestamp parses an optional RFC 3339 field, defaulting to now.
func parseTimestamp(rw *ResponseWriter, field, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Now().UTC(), true
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		rw.BadRequest(field + " must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// clientIP extracts the caller address for throttle keying. RealIP
// middleware has already folded X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

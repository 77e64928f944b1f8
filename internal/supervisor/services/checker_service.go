// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package services

import (
	"context"
	"time"

	"github.com/funnelpulse/funnelpulse/internal/logging"
	"github.com/funnelpulse/funnelpulse/internal/models"
)

// AlertChecker matches the alerting engine's check entry point.
type AlertChecker interface {
	CheckAlerts(ctx context.Context) ([]models.TriggeredAlert, error)
}

// CheckerService runs periodic alert checks under supervision. A failed
// check run is logged and counted but does not crash the service; the next
// tick retries with fresh data.
type CheckerService struct {
	checker  AlertChecker
	interval time.Duration
	name     string
}

// NewCheckerService wraps the alert engine for periodic evaluation. The
// caller is responsible for not adding the service when the interval is
// zero (checks disabled); a non-positive interval makes Serve idle until
// shutdown.
func NewCheckerService(checker AlertChecker, interval time.Duration) *CheckerService {
	return &CheckerService{
		checker:  checker,
		interval: interval,
		name:     "alert-checker",
	}
}

// Serve implements suture.Service.
func (c *CheckerService) Serve(ctx context.Context) error {
	if c.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	logger := logging.WithComponent("alert-checker")
	logger.Info().
		Dur("interval", c.interval).
		Msg("Starting periodic alert checks")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.runCheck(ctx)
		}
	}
}

func (c *CheckerService) runCheck(ctx context.Context) {
	logger := logging.WithComponent("alert-checker")
	triggered, err := c.checker.CheckAlerts(ctx)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("Scheduled alert check failed")
		return
	}
	if len(triggered) > 0 {
		logger.Info().
			Int("triggered", len(triggered)).
			Msg("Scheduled alert check fired rules")
	}
}

// String identifies the service in supervisor logs.
func (c *CheckerService) String() string {
	return c.name
}

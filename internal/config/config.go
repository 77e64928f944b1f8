// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

// Package config loads FunnelPulse configuration from layered sources
// (defaults, optional YAML file, environment variables) using Koanf v2.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the FunnelPulse server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	API       APIConfig       `koanf:"api"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Alerting  AlertingConfig  `koanf:"alerting"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Use ":memory:" for tests.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// APIConfig holds API surface settings.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// AnalyticsConfig holds metric window and aggregation settings.
type AnalyticsConfig struct {
	// DefaultWindowDays is the trailing metric window applied when a request
	// does not specify one.
	DefaultWindowDays int `koanf:"default_window_days"`

	// MaxWindowDays caps the requested window.
	MaxWindowDays int `koanf:"max_window_days"`

	// QueryTimeout bounds one full analytics computation.
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// Concurrency limits parallel aggregate queries within one overview run.
	Concurrency int `koanf:"concurrency"`
}

// AlertingConfig holds alert evaluation settings.
type AlertingConfig struct {
	// CheckInterval is the periodic evaluation cadence. 0 disables the
	// background checker; alert checks can still be invoked over the API.
	CheckInterval time.Duration `koanf:"check_interval"`

	// Cooldown suppresses repeat triggers of the same rule inside this
	// duration.
	Cooldown time.Duration `koanf:"cooldown"`

	// WindowDays is the metric window used for alert evaluation.
	WindowDays int `koanf:"window_days"`

	// WebhookURL, when set, receives a JSON payload for every triggered
	// alert.
	WebhookURL string `koanf:"webhook_url"`

	// WebhookTimeout bounds one webhook delivery attempt.
	WebhookTimeout time.Duration `koanf:"webhook_timeout"`

	// ThrottlePath is the on-disk Badger store used to rate limit
	// API-initiated alert checks per caller. Empty uses in-memory storage.
	ThrottlePath string `koanf:"throttle_path"`

	// ThrottleTTL is the minimum spacing between API-initiated checks from
	// the same caller.
	ThrottleTTL time.Duration `koanf:"throttle_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks configuration invariants. It is called after all layers
// are merged so it sees the effective values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("api.default_page_size must be positive, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api.max_page_size (%d) must be >= api.default_page_size (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if c.Analytics.DefaultWindowDays < 1 {
		return fmt.Errorf("analytics.default_window_days must be positive, got %d",
			c.Analytics.DefaultWindowDays)
	}
	if c.Analytics.MaxWindowDays < c.Analytics.DefaultWindowDays {
		return fmt.Errorf("analytics.max_window_days (%d) must be >= analytics.default_window_days (%d)",
			c.Analytics.MaxWindowDays, c.Analytics.DefaultWindowDays)
	}
	if c.Analytics.Concurrency < 1 {
		return fmt.Errorf("analytics.concurrency must be positive, got %d", c.Analytics.Concurrency)
	}
	if c.Alerting.WindowDays < 1 {
		return fmt.Errorf("alerting.window_days must be positive, got %d", c.Alerting.WindowDays)
	}
	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("alerting.cooldown must not be negative")
	}
	if c.Alerting.CheckInterval < 0 {
		return fmt.Errorf("alerting.check_interval must not be negative")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package database

import (
	"errors"
	"io"
)

// ErrRuleNotFound is returned when an alert rule ID does not exist.
var ErrRuleNotFound = errors.New("alert rule not found")

// closeQuietly closes a resource and explicitly ignores any error. Row
// iterators report real failures through rows.Err(), so Close() errors are
// not actionable on read paths.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

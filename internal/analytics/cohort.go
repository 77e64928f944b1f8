// FunnelPulse - Marketing Funnel Analytics and Alerting
// Copyright 2026 FunnelPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/funnelpulse/funnelpulse

package analytics

import (
	"sort"
	"time"

	"github.com/funnelpulse/funnelpulse/internal/database"
	"github.com/funnelpulse/funnelpulse/internal/models"
)

// maxCohortOffset is the last month offset reported on a retention curve.
const maxCohortOffset = 6

// maxCohorts is how many of the most recent signup-month cohorts are
// returned.
const maxCohorts = 6

// approxMonth approximates one month as 30 days when bucketing activity
// into offsets. The drift against calendar months is a known and accepted
// simplification.
const approxMonth = 30 * 24 * time.Hour

// ComputeCohortRetention groups users into signup-month cohorts and builds
// a retention curve for offsets 0 through 6 per cohort.
//
// A user whose last activity lands monthsDiff months after signup counts as
// retained at every offset up to monthsDiff, not just the final one. A
// single late visit therefore retroactively fills the intervening offsets;
// retention here means "still around by month m", not "active during month
// m". Offset 0 is always 100% for a non-empty cohort.
func ComputeCohortRetention(activity []database.SessionActivity) []models.CohortRetention {
	type cohortAccum struct {
		start    time.Time
		users    int
		retained [maxCohortOffset + 1]int
	}

	cohorts := make(map[string]*cohortAccum)

	for _, sa := range activity {
		key := sa.CreatedAt.Format("2006-01")
		c, ok := cohorts[key]
		if !ok {
			c = &cohortAccum{
				start: time.Date(sa.CreatedAt.Year(), sa.CreatedAt.Month(), 1, 0, 0, 0, 0, time.UTC),
			}
			cohorts[key] = c
		}
		c.users++

		monthsDiff := 0
		if sa.UpdatedAt.After(sa.CreatedAt) {
			monthsDiff = int(sa.UpdatedAt.Sub(sa.CreatedAt) / approxMonth)
		}
		if monthsDiff > maxCohortOffset {
			monthsDiff = maxCohortOffset
		}
		for m := 0; m <= monthsDiff; m++ {
			c.retained[m]++
		}
	}

	keys := make([]string, 0, len(cohorts))
	for key := range cohorts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	if len(keys) > maxCohorts {
		keys = keys[len(keys)-maxCohorts:]
	}

	result := make([]models.CohortRetention, 0, len(keys))
	for _, key := range keys {
		c := cohorts[key]
		curve := models.CohortRetention{
			CohortMonth: key,
			CohortStart: c.start,
			TotalUsers:  c.users,
			Retention:   make([]models.OffsetRetention, 0, maxCohortOffset+1),
		}
		for m := 0; m <= maxCohortOffset; m++ {
			rate := 0.0
			if c.users > 0 {
				rate = float64(c.retained[m]) / float64(c.users) * 100
			}
			curve.Retention = append(curve.Retention, models.OffsetRetention{
				MonthOffset:   m,
				RetainedUsers: c.retained[m],
				RetentionRate: rate,
			})
		}
		result = append(result, curve)
	}

	return result
}

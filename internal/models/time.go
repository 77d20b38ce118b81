// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO date form used at every external boundary.
const DateLayout = "2006-01-02"

// MillisPerDay is the bucket arithmetic unit. All internal computation is in
// integer milliseconds since the epoch, UTC.
const MillisPerDay = 24 * 60 * 60 * 1000

// DateToMillis converts an ISO "YYYY-MM-DD" date string to the epoch
// milliseconds of that day's midnight UTC.
func DateToMillis(date string) (int64, error) {
	t, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t.UnixMilli(), nil
}

// MillisToDate converts epoch milliseconds to the ISO date of that instant
// in UTC. It is the inverse of DateToMillis for midnight-aligned values.
func MillisToDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DateLayout)
}

// NowMillis returns the current time truncated to whole seconds, in epoch
// milliseconds. Registration timestamps are stored in whole seconds, so the
// engine compares against a second-aligned "now".
func NowMillis() int64 {
	return time.Now().Unix() * 1000
}

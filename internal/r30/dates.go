// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package r30

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/retentio/internal/models"
)

// ParseDateOrDuration resolves the date forms the r30 command accepts:
// an ISO "YYYY-MM-DD" date, a "{N}d" number of days in the past, or the
// literal "today". The result is an ISO date relative to now (UTC).
func ParseDateOrDuration(s string, now time.Time) (string, error) {
	today := now.UTC().Truncate(24 * time.Hour)

	switch {
	case strings.EqualFold(s, "today"):
		return today.Format(models.DateLayout), nil

	case strings.HasSuffix(s, "d"):
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return "", fmt.Errorf("invalid day offset %q: %w", s, err)
		}
		return today.AddDate(0, 0, -days).Format(models.DateLayout), nil

	default:
		if _, err := models.DateToMillis(s); err != nil {
			return "", err
		}
		return s, nil
	}
}

// ValidateRange enforces the r30 command's date constraints: since before
// today, until not in the future, and at least one whole day between them.
// All three arguments are ISO dates.
func ValidateRange(since, until, today string) error {
	sinceMS, err := models.DateToMillis(since)
	if err != nil {
		return err
	}
	untilMS, err := models.DateToMillis(until)
	if err != nil {
		return err
	}
	todayMS, err := models.DateToMillis(today)
	if err != nil {
		return err
	}

	if sinceMS >= todayMS {
		return fmt.Errorf("since must be before today: %s", since)
	}
	if untilMS > todayMS {
		return fmt.Errorf("until must not be in the future: %s", until)
	}
	if untilMS-sinceMS < models.MillisPerDay {
		return fmt.Errorf("invalid date range: since %s until %s", since, until)
	}
	return nil
}

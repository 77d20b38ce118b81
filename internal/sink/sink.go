// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package sink persists computed retention figures to the stats database.
// Cohort matrix rows are upserted one bucket column at a time so that reruns
// and the two traversal modes can fill the same table incrementally.
package sink

import (
	"context"
	"fmt"

	"github.com/tomtom215/retentio/internal/models"
)

// Cohort tables, one per supported period width.
const (
	TableDaily   = "cohorts_daily"
	TableWeekly  = "cohorts_weekly"
	TableMonthly = "cohorts_monthly"

	// TableR30 holds the population-wide daily retention figure.
	TableR30 = "r30"
)

// Stats writes retention output rows. Implementations must be idempotent for
// repeated writes of the same cell.
type Stats interface {
	// WriteCohortRows upserts matrix rows into the given cohort table, one
	// b{n} column per row. Zero counts are written like any other value.
	WriteCohortRows(ctx context.Context, table string, rows []models.CohortRow) error

	// WriteR30 records one day's population-wide figure.
	WriteR30(ctx context.Context, day models.R30Day) error

	// Bootstrap creates the output tables if they do not exist, with bucket
	// columns b1..b{buckets}.
	Bootstrap(ctx context.Context, buckets int) error

	Close() error
}

// TableForPeriod maps a period width in days to its cohort table.
func TableForPeriod(periodDays int) (string, error) {
	switch periodDays {
	case 1:
		return TableDaily, nil
	case 7:
		return TableWeekly, nil
	case 30:
		return TableMonthly, nil
	default:
		return "", fmt.Errorf("unsupported period: %d days (want 1, 7 or 30)", periodDays)
	}
}

// upsertStatement builds the single-bucket upsert for a cohort table. Table
// names and bucket columns are interpolated because identifiers cannot be
// bound; both come from TableForPeriod and loop counters, never from input.
func upsertStatement(table string, bucket int) string {
	return fmt.Sprintf(
		"INSERT INTO %s (date, client, sso_idp, b%d) VALUES (?, ?, ?, ?) "+
			"ON DUPLICATE KEY UPDATE b%d=VALUES(b%d)",
		table, bucket, bucket, bucket)
}

// r30Statement is the daily figure upsert. REPLACE keeps reruns idempotent on
// the date primary key.
const r30Statement = "REPLACE INTO " + TableR30 + " (date, all_clients) VALUES (?, ?)"

// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package sink

import (
	"context"

	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
)

// DryRun is a Stats implementation that logs every statement it would have
// executed and touches nothing. It needs no database connection at all, so
// dry runs work without stats credentials.
type DryRun struct{}

// NewDryRun returns a sink that only logs.
func NewDryRun() *DryRun {
	logging.Info().Msg("dry run: stats statements will be logged, not executed")
	return &DryRun{}
}

func (d *DryRun) WriteCohortRows(_ context.Context, table string, rows []models.CohortRow) error {
	for _, row := range rows {
		logging.Info().
			Str("statement", upsertStatement(table, row.Bucket)).
			Str("date", row.Key.CohortStartDate).
			Str("client", string(row.Key.Client)).
			Str("sso_idp", row.Key.SSOIdP).
			Int("count", row.Count).
			Msg("would execute")
	}
	return nil
}

func (d *DryRun) WriteR30(_ context.Context, day models.R30Day) error {
	logging.Info().
		Str("statement", r30Statement).
		Str("date", day.Date).
		Int("count", day.Count).
		Msg("would execute")
	return nil
}

func (d *DryRun) Bootstrap(context.Context, int) error {
	logging.Info().Msg("would bootstrap stats schema")
	return nil
}

func (d *DryRun) Close() error { return nil }

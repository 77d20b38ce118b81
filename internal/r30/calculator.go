// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package r30 computes the rolling 30-day retention metric: for a calendar
// day, the number of distinct users with at least two activity records in the
// trailing 60 days whose first and last records are more than 30 days apart.
package r30

import (
	"context"
	"fmt"

	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
	"github.com/tomtom215/retentio/internal/store"
)

// Calculator evaluates the metric one day at a time against the source store.
type Calculator struct {
	src store.Source

	// thresholdMS is the first midnight with enough client-tagged history.
	// Client data collection started later than raw activity tracking, so
	// per-client figures before this point would count a 60-day window that
	// is only partially tagged.
	thresholdMS int64
}

// NewCalculator returns a calculator gated on the given client threshold
// date ("YYYY-MM-DD").
func NewCalculator(src store.Source, thresholdDate string) (*Calculator, error) {
	thresholdMS, err := models.DateToMillis(thresholdDate)
	if err != nil {
		return nil, fmt.Errorf("client threshold: %w", err)
	}
	return &Calculator{src: src, thresholdMS: thresholdMS}, nil
}

// Day computes the metric for one calendar day. The per-client breakdown is
// produced only when requested and the day is strictly after the threshold
// date; otherwise PerClient stays nil so consumers can tell "not measured"
// from "measured as zero".
func (c *Calculator) Day(ctx context.Context, date string, includeClients bool) (models.R30Day, error) {
	dayMS, err := models.DateToMillis(date)
	if err != nil {
		return models.R30Day{}, err
	}

	count, err := c.src.R30Count(ctx, date)
	if err != nil {
		return models.R30Day{}, fmt.Errorf("r30 %s: %w", date, err)
	}

	day := models.R30Day{Date: date, Count: count}
	if includeClients && dayMS > c.thresholdMS {
		perClient, err := c.src.R30ByClient(ctx, date)
		if err != nil {
			return models.R30Day{}, fmt.Errorf("r30 by client %s: %w", date, err)
		}
		day.PerClient = perClient
	}

	logging.Debug().
		Str("date", date).
		Int("count", day.Count).
		Bool("per_client", day.PerClient != nil).
		Msg("r30 day computed")

	return day, nil
}

// Range computes the metric for every day in [since, until), one query pair
// per day in calendar order. The first failure aborts the run.
func (c *Calculator) Range(ctx context.Context, since, until string, includeClients bool) ([]models.R30Day, error) {
	sinceMS, err := models.DateToMillis(since)
	if err != nil {
		return nil, err
	}
	untilMS, err := models.DateToMillis(until)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("since", since).
		Str("until", until).
		Bool("clients", includeClients).
		Msg("computing r30 range")

	var days []models.R30Day
	for dayMS := sinceMS; dayMS < untilMS; dayMS += models.MillisPerDay {
		day, err := c.Day(ctx, models.MillisToDate(dayMS), includeClients)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package engine

import (
	"context"
	"fmt"

	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/metrics"
	"github.com/tomtom215/retentio/internal/models"
)

// ValidateWindow rejects a cohort or bucket start with less than one whole
// period of data between it and now. Checked before any query is issued.
func ValidateWindow(startMS, periodMS, nowMS int64) error {
	if startMS+periodMS > nowMS {
		return fmt.Errorf("%w: %s with period of %d day(s)",
			ErrTooRecent, models.MillisToDate(startMS), periodMS/models.MillisPerDay)
	}
	return nil
}

// MatrixGenerator drives resolver and aggregator across a triangular matrix
// of (cohort, bucket) cells in either traversal direction. Cells are
// computed independently and sequentially; a run either completes or fails
// as a whole, with no partial-result checkpointing.
type MatrixGenerator struct {
	resolver   *Resolver
	aggregator *Aggregator

	// now is swapped out in tests.
	now func() int64
}

// NewMatrixGenerator wires a generator from its two collaborators.
func NewMatrixGenerator(resolver *Resolver, aggregator *Aggregator) *MatrixGenerator {
	return &MatrixGenerator{
		resolver:   resolver,
		aggregator: aggregator,
		now:        models.NowMillis,
	}
}

// ByCohort resolves one cohort starting at cohortStartMS and tracks it
// through up to buckets activity windows of periodMS each. If the requested
// bucket count extends past now it is silently truncated to however many
// whole periods fit. Rows come back in computation order, one bucket after
// another.
func (g *MatrixGenerator) ByCohort(ctx context.Context, cohortStartMS int64, buckets int, periodMS int64) ([]models.CohortRow, error) {
	if err := ValidateWindow(cohortStartMS, periodMS, g.now()); err != nil {
		return nil, err
	}

	if remaining := g.now() - cohortStartMS; remaining < int64(buckets)*periodMS {
		buckets = int(remaining / periodMS)
	}

	logging.Info().
		Str("cohort", models.MillisToDate(cohortStartMS)).
		Int("buckets", buckets).
		Int64("period_days", periodMS/models.MillisPerDay).
		Msg("tracking cohort forward")

	cohort, err := g.resolver.Resolve(ctx, cohortStartMS, cohortStartMS+periodMS)
	if err != nil {
		return nil, err
	}

	var rows []models.CohortRow
	for bucket := 0; bucket < buckets; bucket++ {
		bucketStart := cohortStartMS + int64(bucket)*periodMS
		cells, err := g.aggregator.Aggregate(ctx, cohort, bucketStart, bucketStart+periodMS)
		if err != nil {
			return nil, err
		}
		for _, cell := range cells {
			rows = append(rows, models.CohortRow{Key: cell.Key, Bucket: bucket + 1, Count: cell.Count})
		}
		metrics.MatrixCells.Inc()
	}
	return rows, nil
}

// ByBucket evaluates one fixed activity window against buckets cohorts, each
// one period older than the previous. Every cohort is re-resolved fresh —
// recomputation is traded for isolation, so late-arriving registration data
// is picked up identically whether a cohort is reached by this traversal or
// by ByCohort. Rows are keyed by each cohort's own start date even though
// iteration proceeds backward from the fixed bucket.
func (g *MatrixGenerator) ByBucket(ctx context.Context, bucketStartMS int64, buckets int, periodMS int64) ([]models.CohortRow, error) {
	if err := ValidateWindow(bucketStartMS, periodMS, g.now()); err != nil {
		return nil, err
	}

	bucketEndMS := bucketStartMS + periodMS
	logging.Info().
		Str("bucket_start", models.MillisToDate(bucketStartMS)).
		Str("bucket_end", models.MillisToDate(bucketEndMS)).
		Int("cohorts", buckets).
		Msg("evaluating bucket across cohorts")

	var rows []models.CohortRow
	for bucket := 0; bucket < buckets; bucket++ {
		cohortStart := bucketStartMS - int64(bucket)*periodMS
		cohort, err := g.resolver.Resolve(ctx, cohortStart, cohortStart+periodMS)
		if err != nil {
			return nil, err
		}

		cells, err := g.aggregator.Aggregate(ctx, cohort, bucketStartMS, bucketEndMS)
		if err != nil {
			return nil, err
		}
		for _, cell := range cells {
			rows = append(rows, models.CohortRow{Key: cell.Key, Bucket: bucket + 1, Count: cell.Count})
		}
		metrics.MatrixCells.Inc()
	}
	return rows, nil
}

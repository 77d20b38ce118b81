// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tomtom215/retentio/internal/engine"
	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
	"github.com/tomtom215/retentio/internal/sink"
	"github.com/tomtom215/retentio/internal/store"
)

func newCohortsCmd(a *app) *cobra.Command {
	var (
		cohortStartDate string
		bucketStartDate string
		period          int
		buckets         int
		dryRun          bool
	)

	cmd := &cobra.Command{
		Use:   "cohorts",
		Short: "Generate the cohort retention matrix and upsert it into the stats database",
		Long: `Generate per-client retention counts for a triangular (cohort, bucket)
matrix. Exactly one start date selects the traversal mode:

  --cohort-start-date  track one registration cohort forward through buckets
  --bucket-start-date  evaluate one activity bucket against preceding cohorts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := sink.TableForPeriod(period)
			if err != nil {
				return err
			}
			if buckets < 1 {
				return fmt.Errorf("--buckets must be at least 1, got %d", buckets)
			}

			startDate := cohortStartDate
			byCohort := true
			if bucketStartDate != "" {
				startDate = bucketStartDate
				byCohort = false
			}
			startMS, err := models.DateToMillis(startDate)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, err := store.NewPostgres(&a.cfg.Source)
			if err != nil {
				return err
			}
			defer func() {
				if err := src.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing source database")
				}
			}()

			var st sink.Stats
			if dryRun {
				st = sink.NewDryRun()
			} else {
				if err := a.cfg.ValidateSink(); err != nil {
					return err
				}
				st, err = sink.NewMySQL(a.cfg.Sink.DSN())
				if err != nil {
					return err
				}
			}
			defer func() {
				if err := st.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing stats database")
				}
			}()

			clients := a.cfg.Engine.KnownClients()
			gen := engine.NewMatrixGenerator(
				engine.NewResolver(src),
				engine.NewAggregator(src, clients),
			)

			periodMS := int64(period) * models.MillisPerDay
			var rows []models.CohortRow
			if byCohort {
				rows, err = gen.ByCohort(ctx, startMS, buckets, periodMS)
			} else {
				rows, err = gen.ByBucket(ctx, startMS, buckets, periodMS)
			}
			if err != nil {
				return err
			}

			if err := st.Bootstrap(ctx, buckets); err != nil {
				return err
			}
			return st.WriteCohortRows(ctx, table, rows)
		},
	}

	cmd.Flags().StringVar(&cohortStartDate, "cohort-start-date", "",
		"cohort registration window start (YYYY-MM-DD), traverses forward")
	cmd.Flags().StringVar(&bucketStartDate, "bucket-start-date", "",
		"activity bucket start (YYYY-MM-DD), traverses backward across cohorts")
	cmd.Flags().IntVar(&period, "period", 7, "cohort and bucket width in days (1, 7 or 30)")
	cmd.Flags().IntVar(&buckets, "buckets", 6, "number of matrix cells to compute")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"log the would-be statements instead of executing them")

	cmd.MarkFlagsOneRequired("cohort-start-date", "bucket-start-date")
	cmd.MarkFlagsMutuallyExclusive("cohort-start-date", "bucket-start-date")

	return cmd
}

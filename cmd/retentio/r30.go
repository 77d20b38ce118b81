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
	"time"

	"github.com/spf13/cobra"
	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
	"github.com/tomtom215/retentio/internal/r30"
	"github.com/tomtom215/retentio/internal/sink"
	"github.com/tomtom215/retentio/internal/store"
)

func newR30Cmd(a *app) *cobra.Command {
	var (
		since       string
		until       string
		noUseragent bool
		upload      bool
	)

	cmd := &cobra.Command{
		Use:   "r30",
		Short: "Calculate rolling 30-day retention per calendar day",
		Long: `Count, for each day in the range, the distinct users active at least twice
in the trailing 60 days with more than 30 days between their first and last
activity. DATE values accept ISO dates ("2021-02-28"), a number of days in
the past ("14d"), or the literal "today". The range is since-inclusive,
until-exclusive.

Output is a CSV report on stdout; --upload writes to the stats database
instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			today, err := r30.ParseDateOrDuration("today", now)
			if err != nil {
				return err
			}
			sinceDate, err := r30.ParseDateOrDuration(since, now)
			if err != nil {
				return fmt.Errorf("--since: %w", err)
			}
			untilDate, err := r30.ParseDateOrDuration(until, now)
			if err != nil {
				return fmt.Errorf("--until: %w", err)
			}
			if err := r30.ValidateRange(sinceDate, untilDate, today); err != nil {
				return err
			}
			if upload && !noUseragent {
				return fmt.Errorf("uploading useragent statistics is not yet supported, add --no-useragent")
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

			calc, err := r30.NewCalculator(src, a.cfg.Engine.ClientThresholdDate)
			if err != nil {
				return err
			}

			days, err := calc.Range(ctx, sinceDate, untilDate, !noUseragent)
			if err != nil {
				return err
			}

			if !upload {
				columns := append(a.cfg.Engine.KnownClients(),
					models.ClientMissing, models.ClientOther)
				return sink.WriteR30CSV(os.Stdout, days, columns)
			}

			if err := a.cfg.ValidateSink(); err != nil {
				return err
			}
			st, err := sink.NewMySQL(a.cfg.Sink.DSN())
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing stats database")
				}
			}()

			for _, day := range days {
				if err := st.WriteR30(ctx, day); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&since, "since", "s", "7d", "start date (inclusive)")
	cmd.Flags().StringVarP(&until, "until", "u", "today", "end date (exclusive)")
	cmd.Flags().BoolVar(&noUseragent, "no-useragent", false, "do not report useragent data")
	cmd.Flags().BoolVar(&upload, "upload", false, "commit data to the stats database")

	return cmd
}

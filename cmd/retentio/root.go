// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package main

import (
	"github.com/spf13/cobra"
	"github.com/tomtom215/retentio/internal/config"
	"github.com/tomtom215/retentio/internal/logging"
)

// app carries the loaded configuration into the subcommands.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "retentio",
		Short:         "User retention cohort analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration first to get logging settings.
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Init(cfg.Logging)
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(newCohortsCmd(a))
	root.AddCommand(newR30Cmd(a))
	return root
}

// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package main is the entry point for the retentio command line tool.
//
// Retentio computes user retention statistics for a federated communication
// service from its homeserver database and writes them to a stats database
// or to stdout.
//
// # Commands
//
//	retentio cohorts --cohort-start-date 2021-01-01 --period 7 --buckets 6
//	retentio cohorts --bucket-start-date 2021-02-12 --period 7 --buckets 6
//	retentio r30 --since 7d --until today
//
// The cohorts command builds a triangular (cohort, bucket) retention matrix
// in one of two traversal modes: forward from a cohort's registration window,
// or backward from a fixed activity bucket across the cohorts that precede
// it. The r30 command computes the rolling 30-day retention figure per
// calendar day.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SYNAPSE_DB_*, STATS_DB_*, LOG_*)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// The source database connection is read-only and deliberately slow: after
// every query the tool sleeps for as long as the query took, so a run never
// claims more than half of a connection's capacity on the shared homeserver
// database.
package main

import (
	"github.com/tomtom215/retentio/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Fatal().Err(err).Msg("Command failed")
	}
}

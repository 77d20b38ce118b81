// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package metrics provides Prometheus instrumentation for the retention
// engine: source query latency and errors, time spent in self-throttle sleeps,
// and sink write volume. Metrics are registered with the default registry so
// an exposition surface can be attached without touching the engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceQueryDuration tracks execution time of read queries against the
	// source replica, labelled by query name.
	SourceQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retentio_source_query_duration_seconds",
			Help:    "Duration of queries against the source replica in seconds",
			Buckets: []float64{.05, .1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"query"},
	)

	// SourceQueryErrors counts failed source queries.
	SourceQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retentio_source_query_errors_total",
			Help: "Total failed queries against the source replica",
		},
		[]string{"query"},
	)

	// ThrottleSleep tracks time spent in the post-query fairness sleep. The
	// replica is shared with latency-sensitive traffic, so every query is
	// followed by a sleep equal to its own execution time.
	ThrottleSleep = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retentio_throttle_sleep_seconds",
			Help:    "Duration of post-query self-throttle sleeps in seconds",
			Buckets: []float64{.05, .1, .5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	// SinkRowsWritten counts rows upserted into the stats sink, labelled by
	// destination table.
	SinkRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retentio_sink_rows_written_total",
			Help: "Total rows upserted into the stats sink",
		},
		[]string{"table"},
	)

	// MatrixCells counts computed cohort/bucket cells.
	MatrixCells = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retentio_matrix_cells_total",
			Help: "Total cohort/bucket matrix cells computed",
		},
	)
)

// ObserveSourceQuery records one source query's duration.
func ObserveSourceQuery(query string, elapsed time.Duration) {
	SourceQueryDuration.WithLabelValues(query).Observe(elapsed.Seconds())
}

// ObserveThrottleSleep records one self-throttle sleep.
func ObserveThrottleSleep(slept time.Duration) {
	ThrottleSleep.Observe(slept.Seconds())
}

// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSourceQuery(t *testing.T) {

	before := testutil.CollectAndCount(SourceQueryDuration)
	ObserveSourceQuery("new_users", 150*time.Millisecond)
	after := testutil.CollectAndCount(SourceQueryDuration)

	if after < 1 || after < before {
		t.Errorf("expected the series to be registered, before=%d after=%d", before, after)
	}
}

func TestSourceQueryErrors(t *testing.T) {

	SourceQueryErrors.WithLabelValues("user_agents").Inc()
	got := testutil.ToFloat64(SourceQueryErrors.WithLabelValues("user_agents"))
	if got < 1 {
		t.Errorf("expected at least 1 error counted, got %f", got)
	}
}

func TestSinkRowsWritten(t *testing.T) {

	SinkRowsWritten.WithLabelValues("cohorts_weekly").Add(5)
	got := testutil.ToFloat64(SinkRowsWritten.WithLabelValues("cohorts_weekly"))
	if got < 5 {
		t.Errorf("expected at least 5 rows counted, got %f", got)
	}
}

// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package store provides read-only access to the source replica holding
// account registration and daily device-activity records.
//
// The replica is shared with latency-sensitive primary traffic, so the store
// enforces a self-throttling discipline: after every query it sleeps for a
// duration equal to that query's own execution time. This is a deliberate
// fairness mechanism, not an optimization target.
package store

import (
	"context"

	"github.com/tomtom215/retentio/internal/models"
)

// UserDevice is one (user, device) pair observed active in a window.
type UserDevice struct {
	UserID   string
	DeviceID string
}

// DeviceAgent is one (user, device, user agent) observation. UserAgent is ""
// when the source had no value; duplicates are expected and folded by the
// resolver.
type DeviceAgent struct {
	UserID    string
	DeviceID  string
	UserAgent string
}

// Source is the read-only query surface the engine consumes. Query failures
// propagate to the caller without retries; whether to rerun is the invoking
// operator's call.
type Source interface {
	// NewUsers returns every non-guest, non-appservice account registered in
	// [startMS, stopMS) that was also active in that window, together with
	// its ordered external identity provider links.
	NewUsers(ctx context.Context, startMS, stopMS int64) ([]models.User, error)

	// ActiveDevices returns the distinct devices the given users were active
	// on in [startMS, stopMS).
	ActiveDevices(ctx context.Context, users []string, startMS, stopMS int64) ([]UserDevice, error)

	// DeviceUserAgents returns every (user, device, user agent) observation
	// for devices the given users have used since sinceMS, consulting the
	// fallback per-device source for data the primary has already reaped.
	DeviceUserAgents(ctx context.Context, users []string, sinceMS int64) ([]DeviceAgent, error)

	// R30Count counts distinct users with at least two activity records in
	// the 60 days trailing the given date whose first and last records are
	// more than 30 days apart.
	R30Count(ctx context.Context, date string) (int, error)

	// R30ByClient is R30Count broken down by client type, classification
	// pushed into the store as an equivalent CASE expression.
	R30ByClient(ctx context.Context, date string) (map[models.ClientType]int, error)
}

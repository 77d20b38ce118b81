// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package engine

import (
	"context"
	"fmt"

	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
	"github.com/tomtom215/retentio/internal/store"
)

// KeyCount is one aggregated cell value before it is assigned a bucket
// number.
type KeyCount struct {
	Key   models.CohortKey
	Count int
}

// Aggregator computes per-client deduplicated active-user counts for one
// cohort and one activity bucket.
//
// A user active on two different client types counts toward both, so totals
// across client types are not statistically additive — a documented caveat,
// intentionally preserved. The combined count is the number of distinct
// cohort users active at all, measured by device presence rather than by
// re-deduplicating the per-client sets: a user whose only device classifies
// as missing still counts toward combined.
type Aggregator struct {
	src     store.Source
	clients []models.ClientType
}

// NewAggregator returns an aggregator emitting the given known-client
// enumeration. The enumeration is configuration, not code, so new client
// families never touch this logic.
func NewAggregator(src store.Source, clients []models.ClientType) *Aggregator {
	return &Aggregator{src: src, clients: clients}
}

// idpTally accumulates one identity provider's dedup sets for a bucket.
type idpTally struct {
	byClient map[models.ClientType]map[string]struct{}
	combined map[string]struct{}
}

func newIdpTally() *idpTally {
	return &idpTally{
		byClient: make(map[models.ClientType]map[string]struct{}),
		combined: make(map[string]struct{}),
	}
}

// Aggregate counts the cohort's active users per client type in
// [bucketStartMS, bucketEndMS), one row per (client, sso_idp) pair in the
// enumeration plus a combined row per sso_idp. Zero counts are emitted so
// the output grid is dense: absence of a row means "not yet computed", never
// "zero". Missing-classified observations are redistributed by Estimate
// before rows are built.
func (a *Aggregator) Aggregate(ctx context.Context, cohort *Cohort, bucketStartMS, bucketEndMS int64) ([]KeyCount, error) {
	logging.Info().
		Str("cohort", cohort.StartDate).
		Int("size", len(cohort.Users)).
		Str("bucket_start", models.MillisToDate(bucketStartMS)).
		Str("bucket_end", models.MillisToDate(bucketEndMS)).
		Msg("aggregating bucket")

	devices, err := a.src.ActiveDevices(ctx, cohort.UserIDs(), bucketStartMS, bucketEndMS)
	if err != nil {
		return nil, fmt.Errorf("aggregate bucket devices: %w", err)
	}

	tallies := make(map[string]*idpTally)
	for _, d := range devices {
		user, ok := cohort.User(d.UserID)
		if !ok {
			// ActiveDevices is scoped to cohort members; an unknown user
			// here means the store returned rows outside the cohort.
			return nil, fmt.Errorf("%w: user %s not in cohort %s",
				ErrUnknownDevice, d.UserID, cohort.StartDate)
		}

		key := models.DeviceKey(d.UserID, d.DeviceID)
		client, ok := cohort.DeviceClients[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s active in bucket of cohort %s",
				ErrUnknownDevice, key, cohort.StartDate)
		}

		idp := user.SSOIdP()
		tally, ok := tallies[idp]
		if !ok {
			tally = newIdpTally()
			tallies[idp] = tally
		}

		users, ok := tally.byClient[client]
		if !ok {
			users = make(map[string]struct{})
			tally.byClient[client] = users
		}
		users[d.UserID] = struct{}{}
		tally.combined[d.UserID] = struct{}{}
	}

	// Dense grid: every idp present in the cohort gets a full set of client
	// rows, zeros included, whether or not it saw activity this bucket.
	var out []KeyCount
	for _, idp := range cohort.IdPs() {
		counts := make(map[models.ClientType]int)
		combined := 0
		if tally, ok := tallies[idp]; ok {
			for client, users := range tally.byClient {
				counts[client] = len(users)
			}
			combined = len(tally.combined)
		}

		estimated := Estimate(counts, a.clients)
		for _, client := range a.clients {
			out = append(out, KeyCount{
				Key: models.CohortKey{
					CohortStartDate: cohort.StartDate,
					Client:          client,
					SSOIdP:          idp,
				},
				Count: estimated[client],
			})
		}
		out = append(out, KeyCount{
			Key: models.CohortKey{
				CohortStartDate: cohort.StartDate,
				Client:          models.ClientCombined,
				SSOIdP:          idp,
			},
			Count: combined,
		})
	}
	return out, nil
}

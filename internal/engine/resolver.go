// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package engine implements the cohort/bucket aggregation core: cohort
// resolution, per-bucket client aggregation, missing-data estimation and the
// two matrix traversal modes.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/retentio/internal/classify"
	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
	"github.com/tomtom215/retentio/internal/store"
)

// Cohort is one resolved registration cohort: its frozen user set and the
// client classification of every device those users have ever been seen on
// since the cohort start. Callers must not mutate either map.
type Cohort struct {
	// StartDate is the cohort's own start day, "YYYY-MM-DD".
	StartDate string

	// Users is the frozen membership, in source order.
	Users []models.User

	// DeviceClients maps "<user_id>+<device_id>" to the device's resolved
	// client type.
	DeviceClients map[string]models.ClientType

	byID map[string]models.User
}

// User looks up a cohort member by id.
func (c *Cohort) User(id string) (models.User, bool) {
	u, ok := c.byID[id]
	return u, ok
}

// UserIDs returns the member ids in membership order.
func (c *Cohort) UserIDs() []string {
	ids := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		ids = append(ids, u.UserID)
	}
	return ids
}

// IdPs returns the identity-provider dimension values present in the cohort,
// sorted, always including "" so password-only rows exist even in an
// SSO-only cohort.
func (c *Cohort) IdPs() []string {
	set := map[string]bool{"": true}
	for _, u := range c.Users {
		set[u.SSOIdP()] = true
	}
	idps := make([]string, 0, len(set))
	for idp := range set {
		idps = append(idps, idp)
	}
	sort.Strings(idps)
	return idps
}

// Resolver builds cohorts from the source store.
type Resolver struct {
	src store.Source
}

// NewResolver returns a resolver reading from the given source.
func NewResolver(src store.Source) *Resolver {
	return &Resolver{src: src}
}

// Resolve returns the users who registered in [startMS, endMS) together with
// the client classification of every device they have used since startMS.
// The user set is frozen at resolution time; query failures propagate
// without retries.
func (r *Resolver) Resolve(ctx context.Context, startMS, endMS int64) (*Cohort, error) {
	logging.Info().
		Str("start", models.MillisToDate(startMS)).
		Str("end", models.MillisToDate(endMS)).
		Msg("resolving cohort")

	users, err := r.src.NewUsers(ctx, startMS, endMS)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort users: %w", err)
	}

	cohort := &Cohort{
		StartDate:     models.MillisToDate(startMS),
		Users:         users,
		DeviceClients: make(map[string]models.ClientType),
		byID:          make(map[string]models.User, len(users)),
	}
	for _, u := range users {
		cohort.byID[u.UserID] = u
	}

	agents, err := r.src.DeviceUserAgents(ctx, cohort.UserIDs(), startMS)
	if err != nil {
		return nil, fmt.Errorf("resolve cohort user agents: %w", err)
	}

	for _, a := range agents {
		key := models.DeviceKey(a.UserID, a.DeviceID)
		client := classify.Classify(a.UserAgent)

		previous, seen := cohort.DeviceClients[key]
		if !seen {
			cohort.DeviceClients[key] = client
			continue
		}
		if client == models.ClientMissing {
			continue
		}
		if previous == models.ClientMissing {
			cohort.DeviceClients[key] = client
		} else if previous != client {
			// First-seen classification wins; this is a tie-break, not an
			// error. Downstream historical data depends on this policy.
			logging.Warn().
				Str("user", a.UserID).
				Str("device", a.DeviceID).
				Str("kept", string(previous)).
				Str("ignored", string(client)).
				Msg("device used both client types in the window, keeping first")
		}
	}

	logging.Info().
		Str("cohort", cohort.StartDate).
		Int("users", len(cohort.Users)).
		Int("devices", len(cohort.DeviceClients)).
		Msg("cohort resolved")

	return cohort, nil
}

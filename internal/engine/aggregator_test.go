// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/retentio/internal/models"
)

// cellMap indexes aggregate output for assertions.
func cellMap(cells []KeyCount) map[models.CohortKey]int {
	m := make(map[models.CohortKey]int, len(cells))
	for _, c := range cells {
		m[c.Key] = c.Count
	}
	return m
}

func resolveCohort(t *testing.T, src *fakeSource, startMS, endMS int64) *Cohort {
	t.Helper()
	cohort, err := NewResolver(src).Resolve(context.Background(), startMS, endMS)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return cohort
}

func TestAggregateMultiClientUserCountsOncePerClient(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@a:hs", day0)
	src.addVisit("@a:hs", "laptop", day0+1000, uaWeb)
	src.addVisit("@a:hs", "phone", day0+2000, uaIOS)

	cohort := resolveCohort(t, src, day0, day1)
	cells, err := NewAggregator(src, models.DefaultClients).Aggregate(context.Background(), cohort, day0, day1)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	got := cellMap(cells)
	key := func(c models.ClientType) models.CohortKey {
		return models.CohortKey{CohortStartDate: "2021-01-01", Client: c, SSOIdP: ""}
	}
	if got[key(models.ClientWeb)] != 1 {
		t.Errorf("web: expected 1, got %d", got[key(models.ClientWeb)])
	}
	if got[key(models.ClientIOS)] != 1 {
		t.Errorf("ios: expected 1, got %d", got[key(models.ClientIOS)])
	}
	// One human, two client rows: combined stays 1.
	if got[key(models.ClientCombined)] != 1 {
		t.Errorf("combined: expected 1, got %d", got[key(models.ClientCombined)])
	}
}

func TestAggregateDeduplicatesWithinClient(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@a:hs", day0)
	src.addVisit("@a:hs", "laptop", day0+1000, uaWeb)
	src.addVisit("@a:hs", "desktop", day0+2000, uaWeb)

	cohort := resolveCohort(t, src, day0, day1)
	cells, err := NewAggregator(src, models.DefaultClients).Aggregate(context.Background(), cohort, day0, day1)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	got := cellMap(cells)
	webKey := models.CohortKey{CohortStartDate: "2021-01-01", Client: models.ClientWeb, SSOIdP: ""}
	if got[webKey] != 1 {
		t.Errorf("two web devices must count one user, got %d", got[webKey])
	}
}

func TestAggregateMissingOnlyUserCountsTowardCombined(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@ghost:hs", day0)
	src.addVisit("@ghost:hs", "d1", day0+1000, "")

	cohort := resolveCohort(t, src, day0, day1)
	cells, err := NewAggregator(src, models.DefaultClients).Aggregate(context.Background(), cohort, day0, day1)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	got := cellMap(cells)
	combinedKey := models.CohortKey{CohortStartDate: "2021-01-01", Client: models.ClientCombined, SSOIdP: ""}
	if got[combinedKey] != 1 {
		t.Errorf("combined must see the missing-only user, got %d", got[combinedKey])
	}
	// Nothing classified, so estimation has no base and every client row is 0.
	for _, client := range models.DefaultClients {
		k := models.CohortKey{CohortStartDate: "2021-01-01", Client: client, SSOIdP: ""}
		if got[k] != 0 {
			t.Errorf("%s: expected 0, got %d", client, got[k])
		}
	}
}

func TestAggregateEmitsDenseGrid(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@pw:hs", day0)
	src.addVisit("@pw:hs", "d1", day0+1000, uaWeb)
	src.addUser("@sso:hs", day0, "oidc-corp")
	src.addVisit("@sso:hs", "d1", day0+2000, uaIOS)

	cohort := resolveCohort(t, src, day0, day1)

	// A bucket with no activity at all still yields the full zero grid.
	cells, err := NewAggregator(src, models.DefaultClients).Aggregate(context.Background(), cohort, day1, day1+models.MillisPerDay)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	want := len(cohort.IdPs()) * (len(models.DefaultClients) + 1)
	if len(cells) != want {
		t.Fatalf("expected %d grid cells, got %d", want, len(cells))
	}
	for _, c := range cells {
		if c.Count != 0 {
			t.Errorf("idle bucket: expected 0 for %+v, got %d", c.Key, c.Count)
		}
	}
}

func TestAggregateAttributesUsersToFirstProvider(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@pw:hs", day0)
	src.addVisit("@pw:hs", "d1", day0+1000, uaWeb)
	src.addUser("@sso:hs", day0, "oidc-corp", "saml-legacy")
	src.addVisit("@sso:hs", "d1", day0+2000, uaWeb)

	cohort := resolveCohort(t, src, day0, day1)
	cells, err := NewAggregator(src, models.DefaultClients).Aggregate(context.Background(), cohort, day0, day1)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	got := cellMap(cells)
	key := func(idp string, c models.ClientType) models.CohortKey {
		return models.CohortKey{CohortStartDate: "2021-01-01", Client: c, SSOIdP: idp}
	}
	if got[key("", models.ClientWeb)] != 1 {
		t.Errorf("password web: expected 1, got %d", got[key("", models.ClientWeb)])
	}
	if got[key("oidc-corp", models.ClientWeb)] != 1 {
		t.Errorf("oidc-corp web: expected 1, got %d", got[key("oidc-corp", models.ClientWeb)])
	}
	if _, ok := got[key("saml-legacy", models.ClientWeb)]; ok {
		t.Error("secondary provider must not receive its own rows")
	}
}

func TestAggregateFailsLoudOnUnknownDevice(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@a:hs", day0)
	src.addVisit("@a:hs", "d1", day0+1000, uaWeb)

	cohort := &Cohort{
		StartDate:     "2021-01-01",
		Users:         []models.User{{UserID: "@a:hs"}},
		DeviceClients: map[string]models.ClientType{}, // d1 deliberately absent
		byID:          map[string]models.User{"@a:hs": {UserID: "@a:hs"}},
	}

	_, err := NewAggregator(src, models.DefaultClients).Aggregate(context.Background(), cohort, day0, day1)
	if !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("expected ErrUnknownDevice, got %v", err)
	}
}

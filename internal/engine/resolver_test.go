// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package engine

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
)

const (
	uaWeb     = "Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/84.0"
	uaAndroid = "Riot/1.1.8 (Android 10)"
	uaIOS     = "Riot/517 (iPhone; iOS 14.3)"
)

func mustMillis(t *testing.T, date string) int64 {
	t.Helper()
	ms, err := models.DateToMillis(date)
	if err != nil {
		t.Fatalf("DateToMillis(%q): %v", date, err)
	}
	return ms
}

func TestResolveMembershipRequiresRegistrationAndActivity(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	// In window, active: member.
	src.addUser("@a:hs", day0)
	src.addVisit("@a:hs", "d1", day0+1000, uaWeb)
	// In window, never active: excluded.
	src.addUser("@b:hs", day0)
	// Registered before window: excluded even though active in window.
	src.addUser("@c:hs", day0-models.MillisPerDay)
	src.addVisit("@c:hs", "d1", day0+1000, uaWeb)

	cohort, err := NewResolver(src).Resolve(context.Background(), day0, day1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(cohort.Users) != 1 || cohort.Users[0].UserID != "@a:hs" {
		t.Errorf("expected membership [@a:hs], got %v", cohort.UserIDs())
	}
	if cohort.StartDate != "2021-01-01" {
		t.Errorf("expected start date 2021-01-01, got %s", cohort.StartDate)
	}
}

func TestResolveWindowWidthGrowsMembership(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")

	src := &fakeSource{}
	for i, id := range []string{"@u1:hs", "@u2:hs", "@u3:hs", "@u4:hs"} {
		ts := day0 + int64(i)*models.MillisPerDay
		src.addUser(id, ts)
		src.addVisit(id, "d1", ts+1000, uaWeb)
	}

	r := NewResolver(src)
	for width := 1; width <= 4; width++ {
		cohort, err := r.Resolve(context.Background(), day0, day0+int64(width)*models.MillisPerDay)
		if err != nil {
			t.Fatalf("Resolve width %d: %v", width, err)
		}
		if len(cohort.Users) != width {
			t.Errorf("width %d days: expected %d members, got %v", width, width, cohort.UserIDs())
		}
	}
}

func TestResolveFirstSeenClassificationWins(t *testing.T) {

	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	defer logging.SetLogger(prev)

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@a:hs", day0)
	src.addVisit("@a:hs", "d1", day0+1000, uaWeb)
	src.addVisit("@a:hs", "d1", day0+2000, uaAndroid)

	cohort, err := NewResolver(src).Resolve(context.Background(), day0, day1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	key := models.DeviceKey("@a:hs", "d1")
	if got := cohort.DeviceClients[key]; got != models.ClientWeb {
		t.Errorf("expected first-seen web to win, got %s", got)
	}
	if !strings.Contains(buf.String(), "keeping first") {
		t.Error("expected a conflict warning in the log output")
	}
}

func TestResolveMissingUpgradesWithoutWarning(t *testing.T) {

	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	defer logging.SetLogger(prev)

	day0 := mustMillis(t, "2021-01-01")
	day1 := day0 + models.MillisPerDay

	src := &fakeSource{}
	src.addUser("@a:hs", day0)
	src.addVisit("@a:hs", "d1", day0+1000, "")
	src.addVisit("@a:hs", "d1", day0+2000, uaIOS)
	// A later missing observation never downgrades a concrete one.
	src.addVisit("@a:hs", "d1", day0+3000, "")

	cohort, err := NewResolver(src).Resolve(context.Background(), day0, day1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	key := models.DeviceKey("@a:hs", "d1")
	if got := cohort.DeviceClients[key]; got != models.ClientIOS {
		t.Errorf("expected missing to upgrade to ios, got %s", got)
	}
	if strings.Contains(buf.String(), "keeping first") {
		t.Error("missing-to-concrete upgrade must not warn")
	}
}

func TestCohortIdPsAlwaysIncludePassword(t *testing.T) {

	day0 := mustMillis(t, "2021-01-01")

	src := &fakeSource{}
	src.addUser("@sso:hs", day0, "oidc-corp", "saml-legacy")
	src.addVisit("@sso:hs", "d1", day0+1000, uaWeb)

	cohort, err := NewResolver(src).Resolve(context.Background(), day0, day0+models.MillisPerDay)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	idps := cohort.IdPs()
	if len(idps) != 2 || idps[0] != "" || idps[1] != "oidc-corp" {
		t.Errorf(`expected ["" "oidc-corp"], got %v`, idps)
	}
}

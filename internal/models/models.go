// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package models defines the domain value types shared by the retention
// engine: client classifications, cohort coordinates and output rows, and
// the boundary conversion between ISO date strings and epoch milliseconds.
package models

// ClientType is the coarse classification of the application a device used,
// derived from its free-text user agent.
type ClientType string

// Known client classifications. MISSING marks observations that could not be
// classified (absent user agents, server/bot traffic); it is a working value
// only and never appears in estimated output. The full enumeration of client
// families reported by the engine is configuration-driven so that new client
// generations can be added without touching aggregation logic.
const (
	ClientElectron     ClientType = "electron"
	ClientWeb          ClientType = "web"
	ClientAndroid      ClientType = "android"
	ClientAndroidRiotX ClientType = "android-riotx"
	ClientIOS          ClientType = "ios"
	ClientMissing      ClientType = "missing"
	ClientOther        ClientType = "other"

	// ClientCombined is the client-agnostic distinct-user count for a bucket.
	ClientCombined ClientType = "combined"
)

// DefaultClients is the default known-client enumeration used for
// aggregation, estimation and the dense output grid.
var DefaultClients = []ClientType{
	ClientAndroid,
	ClientAndroidRiotX,
	ClientElectron,
	ClientIOS,
	ClientWeb,
}

// User is one registered account as read from the source store. Users are
// inputs only; the engine never creates or mutates them.
type User struct {
	// UserID is the globally unique account identifier.
	UserID string

	// AuthProviders lists every external identity provider the account was
	// linked with, in registration order. Empty for password-only accounts.
	AuthProviders []string
}

// SSOIdP returns the identity provider this user is attributed to: the first
// linked provider, or "" for password-only accounts. Users with several
// providers are deliberately attributed to the first one only.
func (u User) SSOIdP() string {
	if len(u.AuthProviders) == 0 {
		return ""
	}
	return u.AuthProviders[0]
}

// ActivityRecord is one observed daily-active session for a device.
type ActivityRecord struct {
	UserID      string
	DeviceID    string
	TimestampMS int64
	UserAgent   string // empty when the source had no user agent
}

// DeviceKey builds the "<user_id>+<device_id>" key under which a device's
// client classification is resolved.
func DeviceKey(userID, deviceID string) string {
	return userID + "+" + deviceID
}

// CohortKey identifies one output row's dimensional coordinate, excluding
// the bucket number.
type CohortKey struct {
	// CohortStartDate is the cohort's own start day, "YYYY-MM-DD".
	CohortStartDate string

	// Client is a known client type or ClientCombined.
	Client ClientType

	// SSOIdP is the identity provider dimension, "" for password accounts.
	SSOIdP string
}

// CohortRow is one cell of the cohort/bucket matrix.
type CohortRow struct {
	Key    CohortKey
	Bucket int
	Count  int
}

// R30Day is the population-wide retention figure for one calendar day,
// optionally broken down per client type. PerClient is nil (not empty-zeroed)
// for days before client tagging existed.
type R30Day struct {
	Date      string
	Count     int
	PerClient map[ClientType]int
}

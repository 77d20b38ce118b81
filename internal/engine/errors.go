// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package engine

import "errors"

var (
	// ErrTooRecent is returned when a cohort or bucket start date has less
	// than one full period of data between it and now. This is a
	// configuration error, rejected before any query is issued.
	ErrTooRecent = errors.New("start date too recent: no whole period fits before now")

	// ErrUnknownDevice is returned when a device active in a bucket is
	// missing from the cohort's device-client map. The resolver captures
	// every device active at or after cohort start, so this indicates a
	// resolver contract violation and fails the run rather than skewing
	// counts silently.
	ErrUnknownDevice = errors.New("device not present in cohort device-client map")
)

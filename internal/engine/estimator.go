// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package engine

import "github.com/tomtom215/retentio/internal/models"

// Estimate redistributes observations classified as missing across the known
// client types, proportionally to each type's observed share.
//
// The adjustment is floor-based and non-normalizing: each known type c gains
// floor(counts[c] / known * missing), where known is the sum of every
// classified count except missing (other included). The adjusted counts
// therefore need not sum to known + missing; rounding loss is accepted, not
// corrected. The other bucket is excluded from the adjustment entirely — it
// neither receives a share of missing nor appears in the output.
//
// When nothing was classified (known == 0) there is no basis for estimation
// and the known-type counts pass through as observed.
func Estimate(counts map[models.ClientType]int, knownClients []models.ClientType) map[models.ClientType]int {
	missing := counts[models.ClientMissing]

	known := 0
	for client, count := range counts {
		if client != models.ClientMissing {
			known += count
		}
	}

	estimated := make(map[models.ClientType]int, len(knownClients))
	for _, client := range knownClients {
		count := counts[client]
		if missing > 0 && known > 0 {
			count += count * missing / known
		}
		estimated[client] = count
	}
	return estimated
}

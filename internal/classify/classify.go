// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package classify maps free-text user-agent strings to coarse client types.
//
// The grammar is a fixed, precedence-ordered list of case-insensitive
// substring tests; first match wins. It is deliberately not a real user-agent
// parser: the classifications here are load-bearing for historical data, so
// the grammar must stay byte-for-byte compatible with prior runs.
package classify

import (
	"fmt"
	"strings"

	"github.com/tomtom215/retentio/internal/models"
)

// Classify returns the client type for a user agent. An empty string (the
// NULL case at the store boundary) classifies as missing. Server, bot and
// test traffic is folded into missing rather than other so it can never
// pollute human-client stats. Total and deterministic; never fails.
func Classify(userAgent string) models.ClientType {
	if userAgent == "" {
		return models.ClientMissing
	}

	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "riot") || strings.Contains(ua, "element"):
		switch {
		case strings.Contains(ua, "electron"):
			return models.ClientElectron
		case strings.Contains(ua, "android") && strings.Contains(ua, "riotx"):
			return models.ClientAndroidRiotX
		case strings.Contains(ua, "android"):
			return models.ClientAndroid
		case strings.Contains(ua, "ios"):
			return models.ClientIOS
		}
		return models.ClientOther
	case strings.Contains(ua, "mozilla") || strings.Contains(ua, "gecko"):
		return models.ClientWeb
	case strings.Contains(ua, "synapse") || strings.Contains(ua, "okhttp") ||
		strings.Contains(ua, "python-requests"):
		// Never allowed to overwrite any other client type.
		return models.ClientMissing
	}
	return models.ClientOther
}

// CaseExpression renders the classification grammar as a SQL CASE expression
// over the given column. The per-client R30 query pushes classification into
// the source store; generating the expression from one place keeps the SQL
// and Classify from drifting apart.
func CaseExpression(column string) string {
	return fmt.Sprintf(`CASE
    WHEN %[1]s IS NULL OR %[1]s = '' THEN 'missing'
    WHEN %[1]s ILIKE '%%riot%%' OR %[1]s ILIKE '%%element%%' THEN CASE
        WHEN %[1]s ILIKE '%%electron%%' THEN 'electron'
        WHEN %[1]s ILIKE '%%android%%' THEN CASE
            WHEN %[1]s ILIKE '%%riotx%%' THEN 'android-riotx'
            ELSE 'android'
        END
        WHEN %[1]s ILIKE '%%ios%%' THEN 'ios'
        ELSE 'other'
    END
    WHEN %[1]s ILIKE '%%mozilla%%' OR %[1]s ILIKE '%%gecko%%' THEN 'web'
    WHEN %[1]s ILIKE '%%synapse%%' OR %[1]s ILIKE '%%okhttp%%' OR %[1]s ILIKE '%%python-requests%%' THEN 'missing'
    ELSE 'other'
END`, column)
}

// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/tomtom215/retentio/internal/models"
)

// WriteR30CSV writes the daily retention report: a header of date, r30 and —
// when any day carries a breakdown — one column per client type, sorted.
// Days without a breakdown leave their client cells empty rather than zero,
// so "not measured" stays distinguishable in the report.
func WriteR30CSV(w io.Writer, days []models.R30Day, clients []models.ClientType) error {
	withClients := false
	for _, day := range days {
		if day.PerClient != nil {
			withClients = true
			break
		}
	}

	columns := make([]string, 0, len(clients))
	if withClients {
		for _, c := range clients {
			columns = append(columns, string(c))
		}
		sort.Strings(columns)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"date", "r30"}, columns...)); err != nil {
		return fmt.Errorf("write r30 header: %w", err)
	}

	for _, day := range days {
		record := []string{day.Date, strconv.Itoa(day.Count)}
		for _, col := range columns {
			cell := ""
			if day.PerClient != nil {
				cell = strconv.Itoa(day.PerClient[models.ClientType(col)])
			}
			record = append(record, cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write r30 row %s: %w", day.Date, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

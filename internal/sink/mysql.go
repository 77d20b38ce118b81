// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // database/sql driver
	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/metrics"
	"github.com/tomtom215/retentio/internal/models"
)

// MySQL is the production stats sink.
type MySQL struct {
	db *sql.DB
}

// NewMySQL opens and verifies a connection to the stats database.
func NewMySQL(dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping stats db: %w", err)
	}

	return &MySQL{db: db}, nil
}

// WriteCohortRows upserts all rows in one transaction; a rerun of the same
// matrix overwrites the same cells.
func (m *MySQL) WriteCohortRows(ctx context.Context, table string, rows []models.CohortRow) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stats tx: %w", err)
	}

	for _, row := range rows {
		stmt := upsertStatement(table, row.Bucket)
		if _, err := tx.ExecContext(ctx, stmt,
			row.Key.CohortStartDate, string(row.Key.Client), row.Key.SSOIdP, row.Count); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s bucket %d for cohort %s: %w",
				table, row.Bucket, row.Key.CohortStartDate, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats tx: %w", err)
	}

	metrics.SinkRowsWritten.WithLabelValues(table).Add(float64(len(rows)))
	logging.Info().
		Str("table", table).
		Int("rows", len(rows)).
		Msg("cohort rows written")
	return nil
}

// WriteR30 records one day's population-wide figure.
func (m *MySQL) WriteR30(ctx context.Context, day models.R30Day) error {
	if _, err := m.db.ExecContext(ctx, r30Statement, day.Date, day.Count); err != nil {
		return fmt.Errorf("write r30 for %s: %w", day.Date, err)
	}
	metrics.SinkRowsWritten.WithLabelValues(TableR30).Inc()
	return nil
}

// Bootstrap creates the output tables if absent. No migration machinery:
// widening an existing table to more buckets is an operator task.
func (m *MySQL) Bootstrap(ctx context.Context, buckets int) error {
	if buckets < 1 {
		return fmt.Errorf("bootstrap needs at least one bucket, got %d", buckets)
	}

	for _, table := range []string{TableDaily, TableWeekly, TableMonthly} {
		if _, err := m.db.ExecContext(ctx, cohortSchema(table, buckets)); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
	}
	if _, err := m.db.ExecContext(ctx, r30Schema); err != nil {
		return fmt.Errorf("create %s: %w", TableR30, err)
	}

	logging.Info().Int("buckets", buckets).Msg("stats schema bootstrapped")
	return nil
}

func (m *MySQL) Close() error {
	return m.db.Close()
}

// cohortSchema builds the cohort table DDL with b1..b{buckets} columns.
func cohortSchema(table string, buckets int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	b.WriteString("    date DATE NOT NULL,\n")
	b.WriteString("    client VARCHAR(32) NOT NULL,\n")
	b.WriteString("    sso_idp VARCHAR(128) NOT NULL DEFAULT '',\n")
	for n := 1; n <= buckets; n++ {
		fmt.Fprintf(&b, "    b%d INT,\n", n)
	}
	b.WriteString("    UNIQUE KEY cohort_cell (date, client, sso_idp)\n")
	b.WriteString(")")
	return b.String()
}

const r30Schema = `CREATE TABLE IF NOT EXISTS r30 (
    date DATE NOT NULL PRIMARY KEY,
    all_clients INT NOT NULL
)`

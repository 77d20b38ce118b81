// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tomtom215/retentio/internal/classify"
	"github.com/tomtom215/retentio/internal/config"
	"github.com/tomtom215/retentio/internal/metrics"
	"github.com/tomtom215/retentio/internal/models"
)

// newUsersSQL selects accounts registered in the window that were also
// active in it. Registration timestamps are stored in whole seconds, daily
// visit timestamps in milliseconds; both bounds are passed in each unit.
// Accounts that registered but never produced a daily visit are excluded.
const newUsersSQL = `
	SELECT DISTINCT users.name
	FROM users
	JOIN user_daily_visits AS udv ON users.name = udv.user_id
	WHERE users.appservice_id IS NULL
	AND users.is_guest = 0
	AND users.creation_ts >= $1
	AND users.creation_ts < $2
	AND udv.timestamp >= $3
	AND udv.timestamp < $4
	AND udv.device_id IS NOT NULL
`

// authProvidersSQL fetches the external identity provider links for a set of
// users. user_external_ids carries no link-order column, so provider name
// order stands in as a deterministic proxy for registration order.
const authProvidersSQL = `
	SELECT user_id, auth_provider
	FROM user_external_ids
	WHERE user_id = ANY($1)
	ORDER BY user_id, auth_provider
`

// activeDevicesSQL lists the distinct devices a set of users used in a
// window.
const activeDevicesSQL = `
	SELECT DISTINCT user_id, device_id
	FROM user_daily_visits
	WHERE user_id = ANY($1)
	AND timestamp >= $2 AND timestamp < $3
	AND device_id IS NOT NULL
`

// deviceUserAgentsSQL finds the user agents of every device a set of users
// has used since the given timestamp. user_ips only holds a few weeks of
// data, so the devices table is unioned in as a fallback for older traffic.
const deviceUserAgentsSQL = `
	WITH user_devices AS (
		SELECT DISTINCT user_id, device_id
		FROM user_daily_visits
		WHERE user_id = ANY($1)
		AND timestamp >= $2
		AND device_id IS NOT NULL
	) SELECT ud.user_id, ud.device_id, ui.user_agent
		FROM user_devices AS ud
		LEFT JOIN user_ips AS ui
		ON ud.user_id = ui.user_id AND ud.device_id = ui.device_id
	UNION
	  SELECT ud.user_id, ud.device_id, d.user_agent
		FROM user_devices AS ud
		LEFT JOIN devices AS d
		ON ud.user_id = d.user_id AND ud.device_id = d.device_id
`

// r30SQL counts distinct users appearing more than once in the trailing 60
// days with a strictly-greater-than-30-day spread between their first and
// last appearance.
const r30SQL = `
	SELECT COUNT(*)
	FROM (
		SELECT user_id
		FROM user_daily_visits
		WHERE timestamp > (extract(epoch from ($1::date - interval '60 days'))::bigint * 1000)
		AND timestamp < (extract(epoch from ($1::date + interval '1 day'))::bigint * 1000)
		GROUP BY user_id
		HAVING max(timestamp) - min(timestamp) > (extract(epoch from interval '30 days')::bigint * 1000)
	) AS retained
`

// r30ByClientSQL is r30SQL grouped by (user, client type) instead of user,
// with classification pushed down as a CASE expression generated from the
// same grammar as classify.Classify.
var r30ByClientSQL = fmt.Sprintf(`
	SELECT client_type, count(client_type)
	FROM (
		SELECT user_id, %s AS client_type
		FROM user_daily_visits
		WHERE timestamp > (extract(epoch from ($1::date - interval '60 days'))::bigint * 1000)
		AND timestamp < (extract(epoch from ($1::date + interval '1 day'))::bigint * 1000)
		GROUP BY user_id, client_type
		HAVING max(timestamp) - min(timestamp) > (extract(epoch from interval '30 days')::bigint * 1000)
	) AS retained
	GROUP BY client_type
	ORDER BY client_type
`, classify.CaseExpression("user_agent"))

// Postgres implements Source against the Synapse read replica.
type Postgres struct {
	db *sql.DB

	// sleep is swapped out in tests; production uses time.Sleep.
	sleep func(time.Duration)
}

// NewPostgres opens a connection to the source replica. The engine is a
// single-threaded batch job, so the pool is pinned to one connection.
func NewPostgres(cfg *config.SourceDBConfig) (*Postgres, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to ping source database: %w", err)
	}

	return &Postgres{db: db, sleep: time.Sleep}, nil
}

// Close closes the underlying connection.
func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func closeQuietly(db *sql.DB) {
	_ = db.Close()
}

// throttled runs one query and then sleeps for as long as the query took.
// On failure the error propagates immediately; there is no retry here.
func (p *Postgres) throttled(name string, fn func() error) error {
	begin := time.Now()
	if err := fn(); err != nil {
		metrics.SourceQueryErrors.WithLabelValues(name).Inc()
		return err
	}
	elapsed := time.Since(begin)
	metrics.ObserveSourceQuery(name, elapsed)

	p.sleep(elapsed)
	metrics.ObserveThrottleSleep(elapsed)
	return nil
}

// NewUsers implements Source.
func (p *Postgres) NewUsers(ctx context.Context, startMS, stopMS int64) ([]models.User, error) {
	var names []string
	err := p.throttled("new_users", func() error {
		rows, err := p.db.QueryContext(ctx, newUsersSQL,
			startMS/1000, stopMS/1000, startMS, stopMS)
		if err != nil {
			return fmt.Errorf("query new users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return fmt.Errorf("scan new user row: %w", err)
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	providers := make(map[string][]string, len(names))
	err = p.throttled("auth_providers", func() error {
		rows, err := p.db.QueryContext(ctx, authProvidersSQL, names)
		if err != nil {
			return fmt.Errorf("query auth providers: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var userID, provider string
			if err := rows.Scan(&userID, &provider); err != nil {
				return fmt.Errorf("scan auth provider row: %w", err)
			}
			providers[userID] = append(providers[userID], provider)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(names))
	for _, name := range names {
		users = append(users, models.User{UserID: name, AuthProviders: providers[name]})
	}
	return users, nil
}

// ActiveDevices implements Source.
func (p *Postgres) ActiveDevices(ctx context.Context, users []string, startMS, stopMS int64) ([]UserDevice, error) {
	if len(users) == 0 {
		return nil, nil
	}

	var devices []UserDevice
	err := p.throttled("active_devices", func() error {
		rows, err := p.db.QueryContext(ctx, activeDevicesSQL, users, startMS, stopMS)
		if err != nil {
			return fmt.Errorf("query active devices: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var d UserDevice
			if err := rows.Scan(&d.UserID, &d.DeviceID); err != nil {
				return fmt.Errorf("scan active device row: %w", err)
			}
			devices = append(devices, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// DeviceUserAgents implements Source.
func (p *Postgres) DeviceUserAgents(ctx context.Context, users []string, sinceMS int64) ([]DeviceAgent, error) {
	if len(users) == 0 {
		return nil, nil
	}

	var agents []DeviceAgent
	err := p.throttled("user_agents", func() error {
		rows, err := p.db.QueryContext(ctx, deviceUserAgentsSQL, users, sinceMS)
		if err != nil {
			return fmt.Errorf("query device user agents: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var a DeviceAgent
			var ua sql.NullString
			if err := rows.Scan(&a.UserID, &a.DeviceID, &ua); err != nil {
				return fmt.Errorf("scan device user agent row: %w", err)
			}
			a.UserAgent = ua.String
			agents = append(agents, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// R30Count implements Source.
func (p *Postgres) R30Count(ctx context.Context, date string) (int, error) {
	var count int
	err := p.throttled("r30", func() error {
		if err := p.db.QueryRowContext(ctx, r30SQL, date).Scan(&count); err != nil {
			return fmt.Errorf("query r30: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// R30ByClient implements Source.
func (p *Postgres) R30ByClient(ctx context.Context, date string) (map[models.ClientType]int, error) {
	counts := make(map[models.ClientType]int)
	err := p.throttled("r30_by_client", func() error {
		rows, err := p.db.QueryContext(ctx, r30ByClientSQL, date)
		if err != nil {
			return fmt.Errorf("query r30 by client: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var client string
			var count int
			if err := rows.Scan(&client, &count); err != nil {
				return fmt.Errorf("scan r30 client row: %w", err)
			}
			counts[models.ClientType(client)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

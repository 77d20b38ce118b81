// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

// Package config loads and validates Retentio configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, an optional YAML config file, and
// built-in defaults. The resulting Config object is constructed once at
// process start and passed by reference into each component constructor —
// there is no import-time global configuration.
package config

import (
	"fmt"

	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
)

// Config is the root configuration object.
type Config struct {
	Source  SourceDBConfig `koanf:"source"`
	Sink    SinkDBConfig   `koanf:"sink"`
	Engine  EngineConfig   `koanf:"engine"`
	Logging logging.Config `koanf:"logging"`
}

// SourceDBConfig describes the read-only Postgres replica holding account
// registration and daily device-activity records.
type SourceDBConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`

	// Options is passed through to the server, e.g. "-c search_path=matrix".
	Options string `koanf:"options"`
}

// DSN renders the pgx connection string.
func (s SourceDBConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s default_query_exec_mode=simple_protocol",
		s.Host, s.Port, s.Username, s.Database)
	if s.Password != "" {
		dsn += " password=" + s.Password
	}
	if s.Options != "" {
		dsn += fmt.Sprintf(" options='%s'", s.Options)
	}
	return dsn
}

// SinkDBConfig describes the MySQL stats store retention rows are upserted
// into.
type SinkDBConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	TLS      bool   `koanf:"tls"`
}

// DSN renders the go-sql-driver/mysql connection string.
func (s SinkDBConfig) DSN() string {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.Username, s.Password, s.Host, s.Port, s.Database)
	if s.TLS {
		dsn += "&tls=true"
	}
	return dsn
}

// EngineConfig holds the analytical parameters that are configuration rather
// than code.
type EngineConfig struct {
	// Clients is the known-client enumeration used for aggregation,
	// estimation and the dense output grid. New client families are added
	// here, not in aggregation logic.
	Clients []string `koanf:"clients"`

	// ClientThresholdDate is the first day with enough historical client
	// tagging for a per-client R30 breakdown. Days at or before it report an
	// empty per-client map.
	ClientThresholdDate string `koanf:"client_threshold_date"`
}

// KnownClients returns the configured enumeration as client types.
func (e EngineConfig) KnownClients() []models.ClientType {
	clients := make([]models.ClientType, 0, len(e.Clients))
	for _, c := range e.Clients {
		clients = append(clients, models.ClientType(c))
	}
	return clients
}

// Validate checks that required configuration is present and valid. The sink
// section is validated separately because dry runs and CSV reports never
// touch it.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSource() error {
	if c.Source.Host == "" {
		return fmt.Errorf("SYNAPSE_DB_HOST is required")
	}
	if c.Source.Username == "" {
		return fmt.Errorf("SYNAPSE_DB_USERNAME is required")
	}
	if c.Source.Database == "" {
		return fmt.Errorf("SYNAPSE_DB_DATABASE is required")
	}
	if c.Source.Port <= 0 || c.Source.Port > 65535 {
		return fmt.Errorf("SYNAPSE_DB_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if len(c.Engine.Clients) == 0 {
		return fmt.Errorf("engine.clients must list at least one known client type")
	}
	seen := make(map[string]bool, len(c.Engine.Clients))
	for _, client := range c.Engine.Clients {
		if client == "" {
			return fmt.Errorf("engine.clients must not contain empty entries")
		}
		if client == string(models.ClientMissing) || client == string(models.ClientOther) ||
			client == string(models.ClientCombined) {
			return fmt.Errorf("engine.clients must not contain reserved type %q", client)
		}
		if seen[client] {
			return fmt.Errorf("engine.clients contains duplicate entry %q", client)
		}
		seen[client] = true
	}
	if _, err := models.DateToMillis(c.Engine.ClientThresholdDate); err != nil {
		return fmt.Errorf("engine.client_threshold_date: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ValidateSink checks the sink section; called only before an upload run.
func (c *Config) ValidateSink() error {
	if c.Sink.Host == "" {
		return fmt.Errorf("STATS_DB_HOST is required for uploads")
	}
	if c.Sink.Username == "" {
		return fmt.Errorf("STATS_DB_USERNAME is required for uploads")
	}
	if c.Sink.Database == "" {
		return fmt.Errorf("STATS_DB_DATABASE is required for uploads")
	}
	if c.Sink.Port <= 0 || c.Sink.Port > 65535 {
		return fmt.Errorf("STATS_DB_PORT must be between 1 and 65535")
	}
	return nil
}

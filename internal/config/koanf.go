// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/retentio/internal/logging"
	"github.com/tomtom215/retentio/internal/models"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/retentio/config.yaml",
	"/etc/retentio/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config
// file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	clients := make([]string, 0, len(models.DefaultClients))
	for _, c := range models.DefaultClients {
		clients = append(clients, string(c))
	}
	return &Config{
		Source: SourceDBConfig{
			Host:     "",
			Port:     5432,
			Username: "",
			Password: "",
			Database: "matrix",
			Options:  "-c search_path=matrix",
		},
		Sink: SinkDBConfig{
			Host:     "",
			Port:     3306,
			Username: "",
			Password: "",
			Database: "businessmetrics",
			TLS:      true,
		},
		Engine: EngineConfig{
			Clients: clients,
			// Client tagging of daily visits began 2020-10-16; sixty days of
			// history are needed before per-client retention is meaningful.
			ClientThresholdDate: "2020-12-15",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration with layered sources:
//  1. Defaults: built-in values
//  2. Config file: optional YAML file (if present)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths. Returns
// the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when they arrive via environment variables.
var sliceConfigPaths = []string{
	"engine.clients",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings, but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// The SYNAPSE_DB_* and STATS_DB_* names predate this implementation and are
// kept for deployment compatibility.
//
// Examples:
//   - SYNAPSE_DB_HOST -> source.host
//   - STATS_DB_DATABASE -> sink.database
//   - RETENTION_CLIENTS -> engine.clients
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Source replica (Synapse) mappings
		"synapse_db_host":     "source.host",
		"synapse_db_port":     "source.port",
		"synapse_db_username": "source.username",
		"synapse_db_password": "source.password",
		"synapse_db_database": "source.database",
		"synapse_db_options":  "source.options",

		// Stats sink mappings
		"stats_db_host":     "sink.host",
		"stats_db_port":     "sink.port",
		"stats_db_username": "sink.username",
		"stats_db_password": "sink.password",
		"stats_db_database": "sink.database",
		"stats_db_tls":      "sink.tls",

		// Engine mappings
		"retention_clients":     "engine.clients",
		"client_threshold_date": "engine.client_threshold_date",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables cannot
	// pollute the config.
	return ""
}

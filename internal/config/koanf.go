// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/affinity/config.yaml",
	"/etc/affinity/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/affinity.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Profiles: ProfilesConfig{
			Path:     "/data/profiles",
			InMemory: false,
		},
		NATS: NATSConfig{
			Enabled:          false,
			URL:              "nats://127.0.0.1:4222",
			Topic:            "signals.captured",
			StreamName:       "",
			QueueGroup:       "learners",
			DurableName:      "signal-processor",
			SubscribersCount: 4,
			AckWaitTimeout:   30 * time.Second,
			CloseTimeout:     30 * time.Second,
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
			MaxDeliver:       5,
			MaxAckPending:    1000,
		},
		Learning: LearningConfig{
			BatchInterval:      24 * time.Hour,
			RunOnStartup:       false,
			LookbackDays:       90,
			DecayTimescaleDays: 30.0,
			MaxConcurrent:      4,
			ExecutionTimeout:   5 * time.Minute,
		},
		Catalog: CatalogConfig{
			URL:     "",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8087,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
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

// findConfigFile searches for a config file in the default paths.
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

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - LEARNING_LOOKBACK_DAYS -> learning.lookback_days
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Profile store mappings
		"profiles_path":      "profiles.path",
		"profiles_in_memory": "profiles.in_memory",

		// NATS mappings
		"nats_enabled":         "nats.enabled",
		"nats_url":             "nats.url",
		"nats_topic":           "nats.topic",
		"nats_stream_name":     "nats.stream_name",
		"nats_queue_group":     "nats.queue_group",
		"nats_durable_name":    "nats.durable_name",
		"nats_subscribers":     "nats.subscribers_count",
		"nats_ack_wait":        "nats.ack_wait_timeout",
		"nats_close_timeout":   "nats.close_timeout",
		"nats_max_reconnects":  "nats.max_reconnects",
		"nats_reconnect_wait":  "nats.reconnect_wait",
		"nats_max_deliver":     "nats.max_deliver",
		"nats_max_ack_pending": "nats.max_ack_pending",

		// Learning mappings
		"learning_batch_interval":  "learning.batch_interval",
		"learning_run_on_startup":  "learning.run_on_startup",
		"learning_lookback_days":   "learning.lookback_days",
		"learning_decay_timescale": "learning.decay_timescale_days",
		"learning_max_concurrent":  "learning.max_concurrent",
		"learning_exec_timeout":    "learning.execution_timeout",

		// Catalog mappings
		"catalog_url":     "catalog.url",
		"catalog_timeout": "catalog.timeout",

		// Server mappings
		"http_port":    "server.port",
		"http_host":    "server.host",
		"http_timeout": "server.timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so stray environment variables cannot
	// pollute the configuration.
	return ""
}

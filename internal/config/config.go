// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package config defines the application configuration and its layered
// loading (defaults, optional YAML file, environment variables) via Koanf.
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Profiles ProfilesConfig `koanf:"profiles"`
	NATS     NATSConfig     `koanf:"nats"`
	Learning LearningConfig `koanf:"learning"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig configures the DuckDB-backed behavioral event store.
type DatabaseConfig struct {
	// Path is the DuckDB database file location.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets DuckDB worker threads. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ProfilesConfig configures the Badger-backed profile store.
type ProfilesConfig struct {
	// Path is the Badger data directory.
	Path string `koanf:"path"`

	// InMemory runs Badger without disk persistence. Test use only.
	InMemory bool `koanf:"in_memory"`
}

// NATSConfig configures the JetStream signal ingestion pipeline.
type NATSConfig struct {
	// Enabled turns the streaming ingest path on. When disabled, signals
	// only enter through direct Ingestor calls.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server address.
	URL string `koanf:"url"`

	// Topic is the subject signals are published on.
	Topic string `koanf:"topic"`

	// StreamName binds the subscriber to an existing JetStream stream.
	// Empty auto-provisions a stream named after the topic.
	StreamName string `koanf:"stream_name"`

	// QueueGroup load-balances consumption across engine instances.
	QueueGroup string `koanf:"queue_group"`

	// DurableName is the JetStream durable consumer prefix.
	DurableName string `koanf:"durable_name"`

	// SubscribersCount is the number of concurrent consumers.
	SubscribersCount int `koanf:"subscribers_count"`

	// AckWaitTimeout is how long JetStream waits for an ack before redelivery.
	AckWaitTimeout time.Duration `koanf:"ack_wait_timeout"`

	// CloseTimeout bounds graceful subscriber shutdown.
	CloseTimeout time.Duration `koanf:"close_timeout"`

	// MaxReconnects bounds client reconnection attempts. -1 is unlimited.
	MaxReconnects int `koanf:"max_reconnects"`

	// ReconnectWait is the delay between reconnection attempts.
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	// MaxDeliver bounds redelivery attempts per message.
	MaxDeliver int `koanf:"max_deliver"`

	// MaxAckPending bounds unacknowledged in-flight messages.
	MaxAckPending int `koanf:"max_ack_pending"`
}

// LearningConfig configures the batch recompute loop and the aggregation
// window. The decay constants default to the learning model's canonical
// values; changing them changes profile semantics across the fleet.
type LearningConfig struct {
	// BatchInterval is how often the full recompute runs.
	BatchInterval time.Duration `koanf:"batch_interval"`

	// RunOnStartup triggers a recompute when the service starts.
	RunOnStartup bool `koanf:"run_on_startup"`

	// LookbackDays is the rolling signal window in days.
	LookbackDays int `koanf:"lookback_days"`

	// DecayTimescaleDays is the exponential decay divisor in days.
	// exp(-age/30) gives a half-life of roughly 20.8 days.
	DecayTimescaleDays float64 `koanf:"decay_timescale_days"`

	// MaxConcurrent bounds parallel per-user recomputations.
	MaxConcurrent int `koanf:"max_concurrent"`

	// ExecutionTimeout bounds a single batch run.
	ExecutionTimeout time.Duration `koanf:"execution_timeout"`
}

// CatalogConfig configures the external catalog service client that fixes
// vector dimensionality. When URL is empty, vector construction is
// unavailable and the vector endpoint reports so.
type CatalogConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ServerConfig configures the operational HTTP surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would prevent the
// engine from operating correctly.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Profiles.Path == "" && !c.Profiles.InMemory {
		return fmt.Errorf("profiles.path must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Learning.LookbackDays <= 0 {
		return fmt.Errorf("learning.lookback_days must be positive, got %d", c.Learning.LookbackDays)
	}
	if c.Learning.DecayTimescaleDays <= 0 {
		return fmt.Errorf("learning.decay_timescale_days must be positive, got %f", c.Learning.DecayTimescaleDays)
	}
	if c.Learning.MaxConcurrent < 1 {
		return fmt.Errorf("learning.max_concurrent must be at least 1, got %d", c.Learning.MaxConcurrent)
	}
	if c.Learning.BatchInterval <= 0 {
		return fmt.Errorf("learning.batch_interval must be positive")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url must not be empty when nats.enabled is true")
	}
	if c.NATS.Enabled && c.NATS.Topic == "" {
		return fmt.Errorf("nats.topic must not be empty when nats.enabled is true")
	}
	return nil
}

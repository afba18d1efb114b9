// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}

	if cfg.Learning.LookbackDays != 90 {
		t.Errorf("expected default lookback of 90 days, got %d", cfg.Learning.LookbackDays)
	}
	if cfg.Learning.DecayTimescaleDays != 30.0 {
		t.Errorf("expected default decay timescale of 30 days, got %f", cfg.Learning.DecayTimescaleDays)
	}
	if cfg.Learning.BatchInterval != 24*time.Hour {
		t.Errorf("expected default batch interval of 24h, got %v", cfg.Learning.BatchInterval)
	}
	if cfg.NATS.Topic != "signals.captured" {
		t.Errorf("expected default topic signals.captured, got %q", cfg.NATS.Topic)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "empty profiles path",
			mutate:  func(c *Config) { c.Profiles.Path = "" },
			wantErr: "profiles.path",
		},
		{
			name: "in-memory profiles need no path",
			mutate: func(c *Config) {
				c.Profiles.Path = ""
				c.Profiles.InMemory = true
			},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "zero lookback",
			mutate:  func(c *Config) { c.Learning.LookbackDays = 0 },
			wantErr: "lookback_days",
		},
		{
			name:    "negative decay timescale",
			mutate:  func(c *Config) { c.Learning.DecayTimescaleDays = -1 },
			wantErr: "decay_timescale_days",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Learning.MaxConcurrent = 0 },
			wantErr: "max_concurrent",
		},
		{
			name: "nats enabled without url",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.NATS.URL = ""
			},
			wantErr: "nats.url",
		},
		{
			name: "nats enabled without topic",
			mutate: func(c *Config) {
				c.NATS.Enabled = true
				c.NATS.Topic = ""
			},
			wantErr: "nats.topic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected validation error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"DUCKDB_PATH", "database.path"},
		{"PROFILES_PATH", "profiles.path"},
		{"NATS_URL", "nats.url"},
		{"NATS_SUBSCRIBERS", "nats.subscribers_count"},
		{"LEARNING_LOOKBACK_DAYS", "learning.lookback_days"},
		{"LEARNING_MAX_CONCURRENT", "learning.max_concurrent"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},     // unmapped vars are skipped
		{"HOSTNAME", ""}, // unmapped vars are skipped
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadWithKoanfEnvOverride(t *testing.T) {
	t.Setenv("DUCKDB_PATH", "/tmp/affinity-test.duckdb")
	t.Setenv("LEARNING_LOOKBACK_DAYS", "30")
	t.Setenv("HTTP_PORT", "9099")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/affinity-test.duckdb" {
		t.Errorf("expected env override for database path, got %q", cfg.Database.Path)
	}
	if cfg.Learning.LookbackDays != 30 {
		t.Errorf("expected lookback override of 30, got %d", cfg.Learning.LookbackDays)
	}
	if cfg.Server.Port != 9099 {
		t.Errorf("expected port override of 9099, got %d", cfg.Server.Port)
	}
	// Untouched settings keep their defaults.
	if cfg.Learning.MaxConcurrent != 4 {
		t.Errorf("expected default max_concurrent of 4, got %d", cfg.Learning.MaxConcurrent)
	}
}

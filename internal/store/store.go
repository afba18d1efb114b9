// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package store persists behavioral signals in DuckDB. Signals are
// append-only; the aggregation pipeline only ever reads them back within
// the rolling lookback window. The store also keeps the learning opt-in
// registry that decides which users the batch loop recomputes.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/mbellard/affinity/internal/config"
	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/metrics"
	"github.com/mbellard/affinity/internal/models"
)

// DB wraps the DuckDB connection and provides signal persistence.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the DuckDB database, configures the connection pool, and
// ensures the schema exists.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for the database file.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301.
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn: conn,
		cfg:  cfg,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Msg("Signal store opened")

	return db, nil
}

// configureConnectionPool sets connection pool parameters.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates the schema when it does not exist yet.
func (db *DB) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS learning_signals (
			id          VARCHAR PRIMARY KEY,
			user_id     VARCHAR NOT NULL,
			kind        VARCHAR NOT NULL,
			entity_kind VARCHAR NOT NULL,
			entity_id   VARCHAR NOT NULL,
			metadata    VARCHAR NOT NULL,
			weight      DOUBLE NOT NULL,
			ts          TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_user_ts
			ON learning_signals (user_id, ts)`,
		`CREATE TABLE IF NOT EXISTS learning_optin (
			user_id    VARCHAR PRIMARY KEY,
			enabled    BOOLEAN NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// AppendSignal persists one behavioral signal. Signals are immutable once
// written; re-appending an existing ID is a constraint error the caller
// may treat as duplicate delivery.
func (db *DB) AppendSignal(ctx context.Context, sig *models.LearningSignal) error {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues("append").Observe(time.Since(start).Seconds())
	}()

	meta, err := json.Marshal(sig.Metadata)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("append").Inc()
		return fmt.Errorf("failed to encode signal metadata: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO learning_signals (id, user_id, kind, entity_kind, entity_id, metadata, weight, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.UserID, string(sig.Kind), string(sig.EntityKind),
		sig.EntityID, string(meta), sig.Weight, sig.Timestamp.UTC(),
	)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("append").Inc()
		return fmt.Errorf("failed to append signal: %w", err)
	}
	return nil
}

// SignalsByUserSince returns every signal for the user whose timestamp is at
// or after the cutoff, ordered oldest first.
func (db *DB) SignalsByUserSince(ctx context.Context, userID string, since time.Time) ([]models.LearningSignal, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues("query_by_user").Observe(time.Since(start).Seconds())
	}()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, kind, entity_kind, entity_id, metadata, weight, ts
		 FROM learning_signals
		 WHERE user_id = ? AND ts >= ?
		 ORDER BY ts ASC`,
		userID, since.UTC(),
	)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("query_by_user").Inc()
		return nil, fmt.Errorf("failed to query signals for user %s: %w", userID, err)
	}
	defer closeQuietly(rows)

	var signals []models.LearningSignal
	for rows.Next() {
		var (
			sig  models.LearningSignal
			meta string
		)
		if err := rows.Scan(&sig.ID, &sig.UserID, &sig.Kind, &sig.EntityKind,
			&sig.EntityID, &meta, &sig.Weight, &sig.Timestamp); err != nil {
			metrics.StoreErrors.WithLabelValues("query_by_user").Inc()
			return nil, fmt.Errorf("failed to scan signal row: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &sig.Metadata); err != nil {
			metrics.StoreErrors.WithLabelValues("query_by_user").Inc()
			return nil, fmt.Errorf("failed to decode metadata for signal %s: %w", sig.ID, err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreErrors.WithLabelValues("query_by_user").Inc()
		return nil, fmt.Errorf("signal row iteration failed: %w", err)
	}
	return signals, nil
}

// SetLearningEnabled records the user's learning opt-in state.
func (db *DB) SetLearningEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO learning_optin (user_id, enabled, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
		userID, enabled, time.Now().UTC(),
	)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("set_optin").Inc()
		return fmt.Errorf("failed to set learning opt-in for user %s: %w", userID, err)
	}
	return nil
}

// LearningEnabledUsers returns the IDs of every user currently opted in to
// preference learning. The batch loop recomputes exactly this set.
func (db *DB) LearningEnabledUsers(ctx context.Context) ([]string, error) {
	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues("list_optin").Observe(time.Since(start).Seconds())
	}()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM learning_optin WHERE enabled ORDER BY user_id`)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list_optin").Inc()
		return nil, fmt.Errorf("failed to list opted-in users: %w", err)
	}
	defer closeQuietly(rows)

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			metrics.StoreErrors.WithLabelValues("list_optin").Inc()
			return nil, fmt.Errorf("failed to scan opt-in row: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreErrors.WithLabelValues("list_optin").Inc()
		return nil, fmt.Errorf("opt-in row iteration failed: %w", err)
	}
	return users, nil
}

// closeQuietly closes a resource and logs failures at debug level.
func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Failed to close resource")
	}
}

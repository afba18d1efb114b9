// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package profiles stores learned preference profiles in BadgerDB. Profiles
// are replaced wholesale on each recompute; a user has at most one profile.
package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/mbellard/affinity/internal/config"
	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/models"
)

const profileKeyPrefix = "profile:"

// ErrProfileNotFound is returned when no profile exists for the user.
var ErrProfileNotFound = errors.New("profile not found")

// Store persists learned preference profiles in BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the Badger-backed profile store.
func Open(cfg *config.ProfilesConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Profile store opened")

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing Badger database. Used by tests.
func NewWithDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Upsert replaces the user's profile with the given one.
func (s *Store) Upsert(ctx context.Context, profile *models.LearnedPreferences) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(profileKeyPrefix + profile.UserID)
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		return nil
	})
}

// Get retrieves the user's profile. Returns ErrProfileNotFound when the
// user has never been recomputed.
func (s *Store) Get(ctx context.Context, userID string) (*models.LearnedPreferences, error) {
	var profile models.LearnedPreferences

	err := s.db.View(func(txn *badger.Txn) error {
		key := []byte(profileKeyPrefix + userID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// Delete removes the user's profile. Deleting a missing profile is a no-op.
func (s *Store) Delete(ctx context.Context, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(profileKeyPrefix + userID)
		if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}

// Close closes the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

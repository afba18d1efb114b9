// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbellard/affinity/internal/config"
	"github.com/mbellard/affinity/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(&config.ProfilesConfig{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open in-memory profile store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close profile store: %v", err)
		}
	})
	return s
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profile := models.NewLearnedPreferences("user-1")
	profile.Preferences[models.CategoryMediums]["oil"] = 0.667
	profile.Preferences[models.CategoryMediums]["watercolor"] = 0.333
	profile.Confidence = 0.3
	profile.SignalCount = 12
	profile.UpdatedAt = time.Now().UTC()

	if err := s.Upsert(ctx, profile); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := s.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Confidence != 0.3 {
		t.Errorf("confidence not round-tripped: got %f", got.Confidence)
	}
	if got.SignalCount != 12 {
		t.Errorf("signal count not round-tripped: got %d", got.SignalCount)
	}
	if got.Preferences[models.CategoryMediums]["oil"] != 0.667 {
		t.Errorf("medium score not round-tripped: got %f", got.Preferences[models.CategoryMediums]["oil"])
	}
	// Every category survives serialization, even empty ones.
	for _, c := range models.Categories {
		if _, ok := got.Preferences[c]; !ok {
			t.Errorf("category %s missing after round trip", c)
		}
	}
}

func TestGetMissingProfile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestUpsertReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := models.NewLearnedPreferences("user-1")
	first.Preferences[models.CategoryArtists]["artist-9"] = 1.0
	first.Confidence = 0.5
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := models.NewLearnedPreferences("user-1")
	second.Preferences[models.CategoryMediums]["oil"] = 1.0
	second.Confidence = 0.1
	if err := s.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := s.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Preferences[models.CategoryArtists]) != 0 {
		t.Errorf("stale artist scores survived replacement: %v", got.Preferences[models.CategoryArtists])
	}
	if got.Preferences[models.CategoryMediums]["oil"] != 1.0 {
		t.Errorf("replacement profile not stored: %v", got.Preferences[models.CategoryMediums])
	}
	if got.Confidence != 0.1 {
		t.Errorf("confidence not replaced: got %f", got.Confidence)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profile := models.NewLearnedPreferences("user-1")
	if err := s.Upsert(ctx, profile); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := s.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "user-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound after delete, got %v", err)
	}

	// Deleting a missing profile is a no-op.
	if err := s.Delete(ctx, "nobody"); err != nil {
		t.Fatalf("deleting missing profile failed: %v", err)
	}
}

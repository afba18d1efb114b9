// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mbellard/affinity/internal/models"
)

func TestBruteForceQueryRanksBySimilarity(t *testing.T) {
	idx := NewBruteForceIndex()
	idx.Add(models.EntityArtwork, "exact", []float64{1, 0, 0})
	idx.Add(models.EntityArtwork, "close", []float64{0.9, 0.1, 0})
	idx.Add(models.EntityArtwork, "orthogonal", []float64{0, 1, 0})
	idx.Add(models.EntityArtist, "wrong-kind", []float64{1, 0, 0})

	matches, err := idx.Query(context.Background(), models.EntityArtwork, []float64{1, 0, 0}, 0.5, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches above threshold, got %d: %v", len(matches), matches)
	}
	if matches[0].EntityID != "exact" {
		t.Errorf("best match = %s, want exact", matches[0].EntityID)
	}
	if math.Abs(matches[0].Score-1.0) > 1e-9 {
		t.Errorf("exact match score = %v, want 1.0", matches[0].Score)
	}
	if matches[1].EntityID != "close" {
		t.Errorf("second match = %s, want close", matches[1].EntityID)
	}
}

func TestBruteForceQueryHonorsLimit(t *testing.T) {
	idx := NewBruteForceIndex()
	idx.Add(models.EntityArtwork, "a", []float64{1, 0})
	idx.Add(models.EntityArtwork, "b", []float64{0.9, 0.1})
	idx.Add(models.EntityArtwork, "c", []float64{0.8, 0.2})

	matches, err := idx.Query(context.Background(), models.EntityArtwork, []float64{1, 0}, 0, 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected limit of 2 matches, got %d", len(matches))
	}
}

func TestBruteForceQueryEdgeCases(t *testing.T) {
	idx := NewBruteForceIndex()

	// Empty index.
	matches, err := idx.Query(context.Background(), models.EntityArtwork, []float64{1, 0}, 0, 5)
	if err != nil || matches != nil {
		t.Errorf("empty index: got %v, %v", matches, err)
	}

	// Empty query vector.
	idx.Add(models.EntityArtwork, "a", []float64{1, 0})
	matches, err = idx.Query(context.Background(), models.EntityArtwork, nil, 0, 5)
	if err != nil || matches != nil {
		t.Errorf("empty query: got %v, %v", matches, err)
	}

	// Zero vectors never match.
	idx.Add(models.EntityArtwork, "zero", []float64{0, 0})
	matches, err = idx.Query(context.Background(), models.EntityArtwork, []float64{1, 0}, 0.1, 5)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for _, m := range matches {
		if m.EntityID == "zero" {
			t.Error("zero vector must not match above threshold")
		}
	}
}

func TestBruteForceRemoveAndReset(t *testing.T) {
	idx := NewBruteForceIndex()
	idx.Add(models.EntityArtwork, "a", []float64{1, 0})
	idx.Add(models.EntityArtwork, "b", []float64{0, 1})

	idx.Remove(models.EntityArtwork, "a")
	if idx.Len(models.EntityArtwork) != 1 {
		t.Errorf("expected 1 vector after remove, got %d", idx.Len(models.EntityArtwork))
	}

	idx.Reset()
	if idx.Len(models.EntityArtwork) != 0 {
		t.Errorf("expected empty index after reset, got %d", idx.Len(models.EntityArtwork))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0.0},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

// Recommend flow fakes.

type fakeProfiles struct {
	profile *models.LearnedPreferences
	err     error
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*models.LearnedPreferences, error) {
	return f.profile, f.err
}

type fakeBuilder struct {
	vector *models.PreferenceVector
	err    error
}

func (f *fakeBuilder) Build(ctx context.Context, profile *models.LearnedPreferences) (*models.PreferenceVector, error) {
	return f.vector, f.err
}

func TestRecommendFlow(t *testing.T) {
	profile := models.NewLearnedPreferences("user-1")
	profile.Confidence = 0.5

	idx := NewBruteForceIndex()
	idx.Add(models.EntityArtwork, "artwork-7", []float64{1, 0})

	r := NewRecommender(
		&fakeProfiles{profile: profile},
		&fakeBuilder{vector: &models.PreferenceVector{UserID: "user-1", Values: []float64{1, 0}}},
		idx,
	)

	rec, err := r.Recommend(context.Background(), "user-1", models.EntityArtwork, 0.5, 10)
	if err != nil {
		t.Fatalf("recommend failed: %v", err)
	}
	if rec.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", rec.Confidence)
	}
	if len(rec.Matches) != 1 || rec.Matches[0].EntityID != "artwork-7" {
		t.Errorf("unexpected matches: %v", rec.Matches)
	}
}

func TestRecommendSurfacesFailures(t *testing.T) {
	idx := NewBruteForceIndex()

	r := NewRecommender(&fakeProfiles{err: errors.New("profile store down")}, &fakeBuilder{}, idx)
	if _, err := r.Recommend(context.Background(), "user-1", models.EntityArtwork, 0, 10); err == nil {
		t.Error("expected profile failure to surface")
	}

	profile := models.NewLearnedPreferences("user-1")
	r = NewRecommender(&fakeProfiles{profile: profile}, &fakeBuilder{err: errors.New("catalog down")}, idx)
	if _, err := r.Recommend(context.Background(), "user-1", models.EntityArtwork, 0, 10); err == nil {
		t.Error("expected vector build failure to surface")
	}
}

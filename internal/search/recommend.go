// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package search

import (
	"context"
	"fmt"

	"github.com/mbellard/affinity/internal/models"
)

// ProfileGetter fetches a user's latest learned profile.
type ProfileGetter interface {
	Get(ctx context.Context, userID string) (*models.LearnedPreferences, error)
}

// VectorBuilder projects a profile onto a preference vector.
type VectorBuilder interface {
	Build(ctx context.Context, profile *models.LearnedPreferences) (*models.PreferenceVector, error)
}

// Recommender runs the on-demand recommendation flow: fetch profile, build
// a vector against the live catalog, and query the similarity backend.
type Recommender struct {
	profiles ProfileGetter
	builder  VectorBuilder
	searcher Searcher
}

// NewRecommender wires the recommend flow from its collaborators.
func NewRecommender(profiles ProfileGetter, builder VectorBuilder, searcher Searcher) *Recommender {
	return &Recommender{
		profiles: profiles,
		builder:  builder,
		searcher: searcher,
	}
}

// Recommendation carries the ranked matches together with the profile
// confidence they were derived from, so callers can discount low-volume
// profiles instead of null-checking.
type Recommendation struct {
	UserID     string  `json:"user_id"`
	Confidence float64 `json:"confidence"`
	Matches    []Match `json:"matches"`
}

// Recommend returns ranked entity matches for the user. Profile-store and
// catalog failures surface to the caller unmodified; no defaulted profile
// is ever silently substituted.
func (r *Recommender) Recommend(ctx context.Context, userID string, entityKind models.EntityKind, threshold float64, limit int) (*Recommendation, error) {
	profile, err := r.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile for user %s: %w", userID, err)
	}

	vec, err := r.builder.Build(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("build vector for user %s: %w", userID, err)
	}

	matches, err := r.searcher.Query(ctx, entityKind, vec.Values, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity query for user %s: %w", userID, err)
	}

	return &Recommendation{
		UserID:     userID,
		Confidence: profile.Confidence,
		Matches:    matches,
	}, nil
}

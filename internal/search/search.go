// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package search hands preference vectors to a similarity-search backend
// and exposes the recommend flow that ties profile, catalog, and index
// together. The in-memory brute-force index is suitable for small to
// medium entity counts; larger deployments plug in an external backend
// behind the same Searcher interface.
package search

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/mbellard/affinity/internal/models"
)

// Match is one ranked search result.
type Match struct {
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
}

// Searcher ranks catalog entities by similarity to a query vector.
type Searcher interface {
	Query(ctx context.Context, entityKind models.EntityKind, vector []float64, threshold float64, limit int) ([]Match, error)
}

// BruteForceIndex performs exhaustive nearest-neighbor search using cosine
// similarity. Thread-safe. Entity vectors must be built from the same
// catalog snapshot epoch as query vectors; the index is rebuilt whenever
// the catalog's distinct-value set changes.
type BruteForceIndex struct {
	mu      sync.RWMutex
	vectors map[models.EntityKind]map[string][]float64
}

// NewBruteForceIndex creates an empty index.
func NewBruteForceIndex() *BruteForceIndex {
	return &BruteForceIndex{
		vectors: make(map[models.EntityKind]map[string][]float64),
	}
}

// Add inserts or replaces the vector for the given entity.
func (b *BruteForceIndex) Add(entityKind models.EntityKind, entityID string, vector []float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.vectors[entityKind] == nil {
		b.vectors[entityKind] = make(map[string][]float64)
	}
	cp := make([]float64, len(vector))
	copy(cp, vector)
	b.vectors[entityKind][entityID] = cp
}

// Remove deletes the entity's vector. No-op if absent.
func (b *BruteForceIndex) Remove(entityKind models.EntityKind, entityID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.vectors[entityKind], entityID)
}

// Reset drops every indexed vector. Called when the catalog's dimension
// set changes and all vectors need re-projection.
func (b *BruteForceIndex) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vectors = make(map[models.EntityKind]map[string][]float64)
}

// Len returns the number of indexed vectors for the entity kind.
func (b *BruteForceIndex) Len(entityKind models.EntityKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.vectors[entityKind])
}

// Query returns entities of the given kind whose cosine similarity to the
// query vector meets the threshold, best first, capped at limit.
func (b *BruteForceIndex) Query(ctx context.Context, entityKind models.EntityKind, vector []float64, threshold float64, limit int) ([]Match, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	candidates := b.vectors[entityKind]
	if len(candidates) == 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(candidates))
	for id, vec := range candidates {
		score := cosineSimilarity(vector, vec)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{EntityID: id, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].EntityID < matches[j].EntityID
	})

	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/mbellard/affinity/internal/config"
	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/metrics"
	"github.com/mbellard/affinity/internal/models"
)

// SignalSource provides a user's signal history inside a time window.
// Implemented by the DuckDB signal store.
type SignalSource interface {
	SignalsByUserSince(ctx context.Context, userID string, since time.Time) ([]models.LearningSignal, error)
}

// ProfileSink persists recomputed profiles. Implemented by the Badger
// profile store.
type ProfileSink interface {
	Upsert(ctx context.Context, profile *models.LearnedPreferences) error
}

// OptInSource lists the users whose profiles the batch loop recomputes.
type OptInSource interface {
	LearningEnabledUsers(ctx context.Context) ([]string, error)
}

// Engine runs the recompute pipeline: fetch window, aggregate with decay,
// normalize, estimate confidence, persist. Stores are injected so tests can
// substitute failing or in-memory implementations.
type Engine struct {
	signals  SignalSource
	profiles ProfileSink
	optIn    OptInSource

	lookback      time.Duration
	aggregator    Aggregator
	maxConcurrent int

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewEngine builds an Engine from injected stores and the learning config.
func NewEngine(signals SignalSource, profiles ProfileSink, optIn OptInSource, cfg *config.LearningConfig) *Engine {
	return &Engine{
		signals:       signals,
		profiles:      profiles,
		optIn:         optIn,
		lookback:      time.Duration(cfg.LookbackDays) * 24 * time.Hour,
		aggregator:    Aggregator{DecayTimescaleDays: cfg.DecayTimescaleDays},
		maxConcurrent: cfg.MaxConcurrent,
		now:           time.Now,
	}
}

// RecomputeUser rebuilds one user's profile from their signal window and
// persists it. The returned profile always carries every category and a
// confidence of at least 0.1, even for users with no signals at all.
func (e *Engine) RecomputeUser(ctx context.Context, userID string) (*models.LearnedPreferences, error) {
	start := time.Now()
	defer func() {
		metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	now := e.now()
	since := now.Add(-e.lookback)

	signals, err := e.signals.SignalsByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch signals for user %s: %w", userID, err)
	}

	profile := e.Compute(userID, signals, now)

	if err := e.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile for user %s: %w", userID, err)
	}

	metrics.ProfileConfidence.Observe(profile.Confidence)
	logging.Debug().
		Str("user_id", userID).
		Int("signals", profile.SignalCount).
		Float64("confidence", profile.Confidence).
		Msg("Profile recomputed")

	return profile, nil
}

// Compute runs the pure pipeline (aggregate, normalize, estimate
// confidence) without touching any store. Given an unchanged signal set and
// an unchanged now, the output is deterministic.
func (e *Engine) Compute(userID string, signals []models.LearningSignal, now time.Time) *models.LearnedPreferences {
	acc := e.aggregator.Aggregate(signals, now)

	profile := models.NewLearnedPreferences(userID)
	profile.Preferences = Normalize(acc)
	profile.Confidence = ConfidenceFor(len(signals))
	profile.SignalCount = len(signals)
	profile.UpdatedAt = now
	return profile
}

// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package services provides suture service wrappers for the engine's
// long-running components.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mbellard/affinity/internal/learning"
)

// BatchRunner runs one full batch recompute. Implemented by the learning
// engine; an interface here keeps the service free of circular imports.
type BatchRunner interface {
	RunBatch(ctx context.Context) (*learning.Summary, error)
}

// LearningServiceConfig holds the scheduler knobs for batch recomputes.
type LearningServiceConfig struct {
	// RunOnStartup triggers a recompute when the service starts.
	RunOnStartup bool

	// BatchInterval is how often the full recompute runs.
	BatchInterval time.Duration

	// ExecutionTimeout bounds a single batch run.
	ExecutionTimeout time.Duration
}

// LearningService schedules batch recomputes under suture supervision and
// retains the latest run summary for the operational API.
type LearningService struct {
	runner BatchRunner
	config LearningServiceConfig
	logger zerolog.Logger
	name   string

	mu          sync.RWMutex
	lastSummary *learning.Summary
}

// NewLearningService creates the batch scheduler service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLearningService(runner BatchRunner, cfg LearningServiceConfig, logger zerolog.Logger) *LearningService {
	return &LearningService{
		runner: runner,
		config: cfg,
		logger: logger.With().Str("service", "learning").Logger(),
		name:   "learning-service",
	}
}

// Serve implements the suture.Service interface: it runs the recompute loop
// until the context is canceled.
func (s *LearningService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("batch_interval", s.config.BatchInterval).
		Msg("learning service starting")

	if s.config.RunOnStartup {
		if err := s.runOnce(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("startup recompute failed (will retry on schedule)")
		}
	}

	if s.config.BatchInterval <= 0 {
		s.config.BatchInterval = 24 * time.Hour
	}

	ticker := time.NewTicker(s.config.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("learning service shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled recompute failed")
			}
		}
	}
}

// runOnce runs a single batch with its own timeout and records the summary.
func (s *LearningService) runOnce(ctx context.Context) error {
	timeout := s.config.ExecutionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	summary, err := s.runner.RunBatch(runCtx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()
	return nil
}

// LastSummary returns the most recent batch summary, or nil when no batch
// has completed yet.
func (s *LearningService) LastSummary() *learning.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSummary
}

// String returns the service name for supervisor logging.
func (s *LearningService) String() string {
	return s.name
}

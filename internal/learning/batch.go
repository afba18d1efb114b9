// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package learning

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/metrics"
)

// UserFailure records one user whose recompute failed during a batch run.
type UserFailure struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// Summary reports the outcome of one full batch recompute.
type Summary struct {
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Failures   []UserFailure `json:"failures,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RunBatch recomputes the profile of every opted-in user. Per-user failures
// are isolated: a failing user is recorded in the summary and the run
// continues. Failed users are not retried within the same run; users already
// upserted keep their new profiles even if later users fail.
//
// Users are processed by a bounded worker pool sized by the learning
// config's MaxConcurrent. Per-user recomputation shares no mutable state,
// so parallelism preserves the sequential semantics.
func (e *Engine) RunBatch(ctx context.Context) (*Summary, error) {
	start := time.Now()
	defer func() {
		metrics.BatchRunDuration.Observe(time.Since(start).Seconds())
	}()

	users, err := e.optIn.LearningEnabledUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list opted-in users: %w", err)
	}

	summary := &Summary{
		Total:     len(users),
		StartedAt: start,
	}

	workers := e.maxConcurrent
	if workers < 1 {
		workers = 1
	}

	type result struct {
		userID string
		err    error
	}

	userCh := make(chan string)
	resultCh := make(chan result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for userID := range userCh {
				_, err := e.RecomputeUser(ctx, userID)
				resultCh <- result{userID: userID, err: err}
			}
		}()
	}

	go func() {
		defer close(userCh)
		for _, userID := range users {
			select {
			case userCh <- userID:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if res.err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, UserFailure{
				UserID: res.userID,
				Error:  res.err.Error(),
			})
			metrics.BatchUsersProcessed.WithLabelValues("failure").Inc()
			logging.Warn().
				Str("user_id", res.userID).
				Err(res.err).
				Msg("User recompute failed, continuing batch")
			continue
		}
		summary.Succeeded++
		metrics.BatchUsersProcessed.WithLabelValues("success").Inc()
	}

	// Deterministic failure ordering for the summary consumers.
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].UserID < summary.Failures[j].UserID
	})

	summary.FinishedAt = time.Now()

	logging.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("Batch recompute finished")

	return summary, nil
}

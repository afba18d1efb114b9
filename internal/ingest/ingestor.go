// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package ingest validates incoming behavioral signals, assigns their
// importance weight, and appends them to the durable event store. Signals
// arrive either via direct calls or through the NATS JetStream consumer.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/metrics"
	"github.com/mbellard/affinity/internal/models"
	"github.com/mbellard/affinity/internal/validation"
)

// SignalAppender is the durable event store the ingestor writes to.
type SignalAppender interface {
	AppendSignal(ctx context.Context, sig *models.LearningSignal) error
}

// Ingestor records behavioral signals. The weight is derived from the
// signal kind exactly once here and never recomputed afterward.
type Ingestor struct {
	store SignalAppender
}

// NewIngestor returns an Ingestor writing to the given store.
func NewIngestor(store SignalAppender) *Ingestor {
	return &Ingestor{store: store}
}

// Ingest validates the signal, derives its weight from the kind, and
// appends it. Validation failures surface immediately and are never
// retried internally. Store failures propagate to the caller unmodified;
// retrying the whole operation is the caller's responsibility, with
// duplicate inserts avoided by the caller supplying unique signal IDs.
func (i *Ingestor) Ingest(ctx context.Context, sig *models.LearningSignal) error {
	if err := validation.ValidateStruct(sig); err != nil {
		metrics.SignalsRejected.WithLabelValues("validation").Inc()
		return fmt.Errorf("invalid signal: %w", err)
	}

	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	sig.Weight = sig.Kind.Weight()

	if err := i.store.AppendSignal(ctx, sig); err != nil {
		metrics.SignalsRejected.WithLabelValues("store").Inc()
		return err
	}

	metrics.SignalsIngested.WithLabelValues(string(sig.Kind), string(sig.EntityKind)).Inc()
	if !sig.Kind.Known() {
		// Unknown kinds are stored with weight 0 and never reach the
		// aggregation dispatch. Worth noticing in logs.
		logging.Debug().
			Str("signal_id", sig.ID).
			Str("kind", string(sig.Kind)).
			Msg("Stored signal of unknown kind with zero weight")
	}
	return nil
}

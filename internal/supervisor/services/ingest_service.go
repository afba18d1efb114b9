// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package services

import (
	"context"

	"github.com/rs/zerolog"
)

// SignalConsumer is the streaming ingest loop. Implemented by the NATS
// consumer.
type SignalConsumer interface {
	Run(ctx context.Context) error
	Close() error
}

// IngestService runs the signal consumer under suture supervision.
type IngestService struct {
	consumer SignalConsumer
	logger   zerolog.Logger
	name     string
}

// NewIngestService wraps a consumer for supervision.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIngestService(consumer SignalConsumer, logger zerolog.Logger) *IngestService {
	return &IngestService{
		consumer: consumer,
		logger:   logger.With().Str("service", "ingest").Logger(),
		name:     "ingest-service",
	}
}

// Serve implements the suture.Service interface.
func (s *IngestService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("ingest service starting")

	err := s.consumer.Run(ctx)

	if closeErr := s.consumer.Close(); closeErr != nil {
		s.logger.Warn().Err(closeErr).Msg("consumer close failed")
	}
	return err
}

// String returns the service name for supervisor logging.
func (s *IngestService) String() string {
	return s.name
}

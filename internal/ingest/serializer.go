// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package ingest

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mbellard/affinity/internal/models"
	"github.com/mbellard/affinity/internal/validation"
)

// Serializer handles signal encoding/decoding for NATS messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts a signal to JSON bytes after validating it.
func (s *Serializer) Marshal(sig *models.LearningSignal) ([]byte, error) {
	if err := validation.ValidateStruct(sig); err != nil {
		return nil, fmt.Errorf("validate signal: %w", err)
	}

	data, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("marshal signal: %w", err)
	}
	return data, nil
}

// Unmarshal converts JSON bytes to a signal.
func (s *Serializer) Unmarshal(data []byte) (*models.LearningSignal, error) {
	var sig models.LearningSignal
	if err := json.Unmarshal(data, &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signal: %w", err)
	}
	return &sig, nil
}

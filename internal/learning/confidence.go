// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package learning

// confidenceThreshold maps a minimum signal count to a confidence score.
type confidenceThreshold struct {
	minSignals int
	score      float64
}

// confidenceThresholds is checked highest first; first match wins. The
// mapping is a coarse, monotonic step function so confidence stays
// interpretable for downstream consumers.
var confidenceThresholds = []confidenceThreshold{
	{100, 0.9},
	{50, 0.7},
	{20, 0.5},
	{10, 0.3},
}

// baseConfidence backs profiles with too few signals, including zero.
// A zero-signal profile still carries confidence 0.1 rather than being
// absent, so consumers branch on confidence instead of null-checking.
const baseConfidence = 0.1

// ConfidenceFor maps the number of signals inside the lookback window to
// a confidence score in [0,1].
func ConfidenceFor(signalCount int) float64 {
	for _, t := range confidenceThresholds {
		if signalCount >= t.minSignals {
			return t.score
		}
	}
	return baseConfidence
}

// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package learning

import (
	"math"
	"time"

	"github.com/mbellard/affinity/internal/models"
)

// accumulator holds raw per-category weighted sums before normalization.
// Values may be negative when dislikes or unfollows outweigh positive
// signals in a category.
type accumulator map[models.Category]map[string]float64

func newAccumulator() accumulator {
	acc := make(accumulator, len(models.Categories))
	for _, c := range models.Categories {
		acc[c] = map[string]float64{}
	}
	return acc
}

func (a accumulator) add(category models.Category, value string, contribution float64) {
	a[category][value] += contribution
}

// Aggregator computes time-decayed, weighted category sums from a user's
// signal history.
type Aggregator struct {
	// DecayTimescaleDays is the exponential decay divisor. A signal aged
	// exactly one timescale retains e^-1 (~37%) of its weight.
	DecayTimescaleDays float64
}

// decayFactor returns exp(-age_days/timescale) for a signal observed at ts,
// evaluated at the recomputation instant now. Future timestamps clamp to no
// decay rather than amplification.
func (a *Aggregator) decayFactor(ts, now time.Time) float64 {
	ageDays := now.Sub(ts).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / a.DecayTimescaleDays)
}

// Aggregate folds every signal into the category accumulators. Each signal
// contributes weight * decay, routed through the dispatch table; signals of
// kinds absent from the table are dropped. Addition is commutative, so
// signal order does not affect the result beyond float rounding.
func (a *Aggregator) Aggregate(signals []models.LearningSignal, now time.Time) accumulator {
	acc := newAccumulator()
	for i := range signals {
		sig := &signals[i]
		rules, ok := dispatchRules[sig.Kind]
		if !ok {
			continue
		}
		contribution := sig.Weight * a.decayFactor(sig.Timestamp, now)
		for _, rule := range rules {
			for _, value := range rule.values(sig.Metadata) {
				acc.add(rule.category, value, contribution*rule.multiplier)
			}
		}
	}
	return acc
}

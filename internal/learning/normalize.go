// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package learning

import (
	"github.com/mbellard/affinity/internal/models"
)

// Normalize converts raw category accumulators into within-category
// probability distributions. Each category is normalized independently:
// when its raw values sum to a positive number every value is divided by
// that sum, so the scores sum to 1. A category whose sum is zero or
// negative (dislikes outweighing likes) yields an empty map; net-negative
// preference is never persisted as negative scores.
//
// Every fixed category is present in the output, empty or not.
func Normalize(acc accumulator) map[models.Category]map[string]float64 {
	prefs := make(map[models.Category]map[string]float64, len(models.Categories))
	for _, category := range models.Categories {
		prefs[category] = normalizeCategory(acc[category])
	}
	return prefs
}

func normalizeCategory(raw map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range raw {
		sum += v
	}
	if sum <= 0 {
		return map[string]float64{}
	}

	normalized := make(map[string]float64, len(raw))
	for value, v := range raw {
		normalized[value] = v / sum
	}
	return normalized
}

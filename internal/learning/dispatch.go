// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package learning implements the preference-learning pipeline: time-decayed
// aggregation of behavioral signals into category accumulators, normalization
// into probability distributions, confidence estimation, and the batch
// recompute loop that drives all three for every opted-in user.
package learning

import (
	"strings"

	"github.com/mbellard/affinity/internal/models"
)

// minSearchTokenLen drops short stop-word-like tokens from search queries.
const minSearchTokenLen = 2

// dispatchRule routes a signal's decayed contribution into one category
// accumulator, scaled by a kind-specific multiplier. values extracts the
// category values from the signal metadata; empty extraction means the rule
// contributes nothing for that signal.
type dispatchRule struct {
	category   models.Category
	multiplier float64
	values     func(models.SignalMetadata) []string
}

func one(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// attributeRules routes attribute-bearing signals (views and purchases)
// into the medium, genre, and color accumulators at full contribution.
var attributeRules = []dispatchRule{
	{models.CategoryMediums, 1.0, func(m models.SignalMetadata) []string { return one(m.Medium) }},
	{models.CategoryGenres, 1.0, func(m models.SignalMetadata) []string { return one(m.Genre) }},
	{models.CategoryColors, 1.0, func(m models.SignalMetadata) []string { return m.Colors }},
}

// dispatchRules is the full kind-to-rules table. Kinds absent from the table
// contribute to no category: the signal stays in the event store but is
// silently dropped from aggregation. Extending the signal taxonomy means
// extending this table, nothing else.
var dispatchRules = map[models.SignalKind][]dispatchRule{
	models.SignalView:     attributeRules,
	models.SignalPurchase: attributeRules,
	models.SignalLike: {
		{models.CategoryArtists, 2.0, func(m models.SignalMetadata) []string { return one(m.ArtistID) }},
		{models.CategorySubjects, 1.5, func(m models.SignalMetadata) []string { return one(m.Subject) }},
	},
	models.SignalInquiry: {
		{models.CategoryPriceRanges, 1.5, func(m models.SignalMetadata) []string { return one(m.PriceRange) }},
	},
	models.SignalSearch: {
		{models.CategorySearchTerms, 0.5, func(m models.SignalMetadata) []string { return tokenizeQuery(m.Query) }},
	},
}

// tokenizeQuery splits a search query on whitespace, lower-cases it, and
// keeps tokens longer than minSearchTokenLen characters.
func tokenizeQuery(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) > minSearchTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

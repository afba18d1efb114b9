// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package models

import (
	"time"
)

// Category is one of the fixed affinity dimensions a profile is learned over.
type Category string

const (
	// CategoryMediums holds affinities for artwork mediums.
	CategoryMediums Category = "mediums"
	// CategoryStyles holds affinities for artwork styles.
	CategoryStyles Category = "styles"
	// CategoryColors holds affinities for dominant colors.
	CategoryColors Category = "colors"
	// CategoryPriceRanges holds affinities for price buckets.
	CategoryPriceRanges Category = "price_ranges"
	// CategoryArtists holds affinities for individual artists.
	CategoryArtists Category = "artists"
	// CategorySubjects holds affinities for depicted subjects.
	CategorySubjects Category = "subjects"
	// CategoryGenres holds affinities for artwork genres.
	CategoryGenres Category = "genres"
	// CategorySearchTerms holds affinities for search query tokens.
	CategorySearchTerms Category = "search_terms"
)

// Categories lists every profile category in stable order. Profiles always
// contain all of them; a category with no accumulated mass is an empty map,
// never an omitted key.
var Categories = []Category{
	CategoryMediums,
	CategoryStyles,
	CategoryColors,
	CategoryPriceRanges,
	CategoryArtists,
	CategorySubjects,
	CategoryGenres,
	CategorySearchTerms,
}

// LearnedPreferences is the decayed, normalized preference profile of one
// user. It is replaced wholesale on each recompute, never partially patched.
type LearnedPreferences struct {
	// UserID is the profile owner.
	UserID string `json:"user_id"`

	// Preferences maps each category to a value-to-score distribution.
	// For every category with positive raw mass the scores sum to 1.0;
	// categories with zero or net-negative mass are empty maps.
	Preferences map[Category]map[string]float64 `json:"preferences"`

	// Confidence reflects how much signal volume backs the profile, in [0,1].
	Confidence float64 `json:"confidence"`

	// SignalCount is the number of signals inside the lookback window that
	// were used to compute the profile.
	SignalCount int `json:"signal_count"`

	// UpdatedAt is when the profile was last recomputed.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLearnedPreferences returns an empty profile for the user with every
// category present as an empty map.
func NewLearnedPreferences(userID string) *LearnedPreferences {
	prefs := make(map[Category]map[string]float64, len(Categories))
	for _, c := range Categories {
		prefs[c] = map[string]float64{}
	}
	return &LearnedPreferences{
		UserID:      userID,
		Preferences: prefs,
	}
}

// Score returns the normalized score for a category value, or 0 when the
// value is absent from the profile.
func (p *LearnedPreferences) Score(category Category, value string) float64 {
	if p == nil || p.Preferences == nil {
		return 0
	}
	return p.Preferences[category][value]
}

// CatalogAttribute is a categorical item attribute the catalog service can
// enumerate distinct values for. Only these attributes are projected into
// preference vectors.
type CatalogAttribute string

const (
	// AttributeMedium projects into the mediums category.
	AttributeMedium CatalogAttribute = "medium"
	// AttributeStyle projects into the styles category.
	AttributeStyle CatalogAttribute = "style"
	// AttributeColor projects into the colors category.
	AttributeColor CatalogAttribute = "color"
)

// ProjectedAttributes lists the catalog attributes that define vector
// dimensions, in the fixed concatenation order [mediums..., styles...,
// colors...].
var ProjectedAttributes = []CatalogAttribute{
	AttributeMedium,
	AttributeStyle,
	AttributeColor,
}

// Category returns the profile category an attribute's values are scored
// from.
func (a CatalogAttribute) Category() Category {
	switch a {
	case AttributeMedium:
		return CategoryMediums
	case AttributeStyle:
		return CategoryStyles
	case AttributeColor:
		return CategoryColors
	default:
		return ""
	}
}

// Dimension describes one position of a preference vector.
type Dimension struct {
	// Attribute is the catalog attribute the position belongs to.
	Attribute CatalogAttribute `json:"attribute"`

	// Value is the distinct attribute value the position scores.
	Value string `json:"value"`
}

// PreferenceVector is the positional numeric projection of a profile for
// similarity search. It is ephemeral: dimension meaning is fixed by the
// catalog snapshot taken at construction time, so vectors are only
// comparable within one construction epoch.
type PreferenceVector struct {
	// UserID is the profile owner the vector was built for.
	UserID string `json:"user_id"`

	// Values holds the normalized scores in dimension order.
	Values []float64 `json:"values"`

	// Dimensions describes what each position means.
	Dimensions []Dimension `json:"dimensions"`

	// BuiltAt is when the catalog snapshot was taken.
	BuiltAt time.Time `json:"built_at"`
}

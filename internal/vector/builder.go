// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/mbellard/affinity/internal/metrics"
	"github.com/mbellard/affinity/internal/models"
)

// Builder constructs preference vectors from profiles and a live catalog
// snapshot.
type Builder struct {
	catalog CatalogProvider
}

// NewBuilder returns a Builder backed by the given catalog provider.
func NewBuilder(catalog CatalogProvider) *Builder {
	return &Builder{catalog: catalog}
}

// Build projects the profile onto a vector dimensioned by the catalog's
// current distinct values, concatenated in the fixed attribute order
// [mediums..., styles..., colors...]. The catalog snapshot is taken once
// per call and held fixed, so vectors built within one call epoch are
// comparable. Any catalog failure aborts the whole build; no partial
// vector is ever returned.
//
// Vector length is non-deterministic across calls: it grows and shrinks
// with the catalog's distinct-value set. Callers that persist vectors must
// re-project them whenever dimensionality changes.
func (b *Builder) Build(ctx context.Context, profile *models.LearnedPreferences) (*models.PreferenceVector, error) {
	if profile == nil {
		metrics.VectorBuildErrors.WithLabelValues("profile").Inc()
		return nil, fmt.Errorf("cannot build vector from nil profile")
	}

	var dimensions []models.Dimension
	for _, attribute := range models.ProjectedAttributes {
		values, err := b.catalog.DistinctValues(ctx, attribute)
		if err != nil {
			metrics.VectorBuildErrors.WithLabelValues("catalog").Inc()
			if _, ok := err.(*CatalogError); ok {
				return nil, err
			}
			return nil, &CatalogError{Attribute: attribute, Err: err}
		}
		for _, value := range values {
			dimensions = append(dimensions, models.Dimension{Attribute: attribute, Value: value})
		}
	}

	values := make([]float64, len(dimensions))
	for i, dim := range dimensions {
		values[i] = profile.Score(dim.Attribute.Category(), dim.Value)
	}

	metrics.VectorsBuilt.Inc()
	metrics.VectorDimensions.Set(float64(len(dimensions)))

	return &models.PreferenceVector{
		UserID:     profile.UserID,
		Values:     values,
		Dimensions: dimensions,
		BuiltAt:    time.Now().UTC(),
	}, nil
}

// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package models

import (
	"time"
)

// SignalKind classifies a behavioral event by the action the user took.
type SignalKind string

const (
	// SignalView indicates the user viewed an entity.
	SignalView SignalKind = "view"
	// SignalLike indicates an explicit positive reaction.
	SignalLike SignalKind = "like"
	// SignalDislike indicates an explicit negative reaction.
	SignalDislike SignalKind = "dislike"
	// SignalShare indicates the user shared an entity.
	SignalShare SignalKind = "share"
	// SignalInquiry indicates a price or availability inquiry.
	SignalInquiry SignalKind = "inquiry"
	// SignalPurchase indicates a completed purchase.
	SignalPurchase SignalKind = "purchase"
	// SignalFollow indicates the user followed an artist or catalogue.
	SignalFollow SignalKind = "follow"
	// SignalUnfollow indicates the user unfollowed an artist or catalogue.
	SignalUnfollow SignalKind = "unfollow"
	// SignalSearch indicates the user issued a search query.
	SignalSearch SignalKind = "search"
)

// Weight returns the importance weight assigned to this signal kind at
// ingestion time. Unknown kinds map to 0 and carry no influence.
func (k SignalKind) Weight() float64 {
	switch k {
	case SignalView:
		return 0.1
	case SignalLike:
		return 0.3
	case SignalDislike:
		return -0.2
	case SignalShare:
		return 0.4
	case SignalInquiry:
		return 0.6
	case SignalPurchase:
		return 1.0
	case SignalFollow:
		return 0.2
	case SignalUnfollow:
		return -0.1
	default:
		return 0.0
	}
}

// Known reports whether the kind is part of the signal taxonomy.
func (k SignalKind) Known() bool {
	switch k {
	case SignalView, SignalLike, SignalDislike, SignalShare, SignalInquiry,
		SignalPurchase, SignalFollow, SignalUnfollow, SignalSearch:
		return true
	default:
		return false
	}
}

// EntityKind identifies the type of marketplace entity a signal targets.
type EntityKind string

const (
	// EntityArtwork is a single artwork listing.
	EntityArtwork EntityKind = "artwork"
	// EntityArtist is an artist profile.
	EntityArtist EntityKind = "artist"
	// EntityCatalogue is a curated catalogue of artworks.
	EntityCatalogue EntityKind = "catalogue"
)

// SignalMetadata carries the category attributes observed on the target
// entity at signal time. All fields are optional; the aggregator only
// dispatches on the fields relevant to the signal's kind.
type SignalMetadata struct {
	// Medium is the artwork medium (oil, watercolor, sculpture, ...).
	Medium string `json:"medium,omitempty"`

	// Genre is the artwork genre (abstract, portrait, landscape, ...).
	Genre string `json:"genre,omitempty"`

	// Style is the artwork style (impressionist, minimalist, ...).
	Style string `json:"style,omitempty"`

	// Colors lists the dominant colors of the artwork.
	Colors []string `json:"colors,omitempty"`

	// Subject is the depicted subject (nature, urban, figure, ...).
	Subject string `json:"subject,omitempty"`

	// ArtistID is the identifier of the artwork's artist.
	ArtistID string `json:"artist_id,omitempty"`

	// PriceRange is the bucketed listing price (e.g. "1000-5000").
	PriceRange string `json:"price_range,omitempty"`

	// Query is the raw search query text for search signals.
	Query string `json:"query,omitempty"`
}

// LearningSignal is one observed behavioral event. Signals are append-only:
// the weight is assigned exactly once at ingestion from the signal kind and
// is never recomputed from metadata afterward.
type LearningSignal struct {
	// ID is the unique event identifier. Producers should set it for
	// idempotent delivery; the ingestor assigns one when absent.
	ID string `json:"id"`

	// UserID is the user who produced the signal.
	UserID string `json:"user_id" validate:"required"`

	// Kind is the behavioral action taken.
	Kind SignalKind `json:"kind" validate:"required"`

	// EntityKind is the type of the target entity.
	EntityKind EntityKind `json:"entity_kind" validate:"required,oneof=artwork artist catalogue"`

	// EntityID identifies the target entity.
	EntityID string `json:"entity_id" validate:"required"`

	// Metadata carries the category attributes of the target entity.
	Metadata SignalMetadata `json:"metadata"`

	// Weight is the importance weight derived from Kind at ingestion.
	Weight float64 `json:"weight"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

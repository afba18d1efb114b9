// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbellard/affinity/internal/models"
	"github.com/mbellard/affinity/internal/validation"
)

type fakeAppender struct {
	appended []*models.LearningSignal
	err      error
}

func (f *fakeAppender) AppendSignal(ctx context.Context, sig *models.LearningSignal) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, sig)
	return nil
}

func validSignal() *models.LearningSignal {
	return &models.LearningSignal{
		UserID:     "user-1",
		Kind:       models.SignalPurchase,
		EntityKind: models.EntityArtwork,
		EntityID:   "artwork-1",
		Metadata:   models.SignalMetadata{Medium: "oil"},
		Timestamp:  time.Now().UTC(),
	}
}

func TestIngestAssignsWeightAndID(t *testing.T) {
	store := &fakeAppender{}
	ing := NewIngestor(store)

	sig := validSignal()
	if err := ing.Ingest(context.Background(), sig); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if len(store.appended) != 1 {
		t.Fatalf("expected 1 appended signal, got %d", len(store.appended))
	}
	got := store.appended[0]
	if got.Weight != 1.0 {
		t.Errorf("purchase weight = %v, want 1.0", got.Weight)
	}
	if got.ID == "" {
		t.Error("ingestor must assign an ID when absent")
	}
}

func TestIngestPreservesCallerID(t *testing.T) {
	store := &fakeAppender{}
	ing := NewIngestor(store)

	sig := validSignal()
	sig.ID = "caller-chosen"
	if err := ing.Ingest(context.Background(), sig); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if store.appended[0].ID != "caller-chosen" {
		t.Errorf("ID overwritten: got %q", store.appended[0].ID)
	}
}

func TestIngestWeightTable(t *testing.T) {
	tests := []struct {
		kind models.SignalKind
		want float64
	}{
		{models.SignalView, 0.1},
		{models.SignalLike, 0.3},
		{models.SignalDislike, -0.2},
		{models.SignalShare, 0.4},
		{models.SignalInquiry, 0.6},
		{models.SignalPurchase, 1.0},
		{models.SignalFollow, 0.2},
		{models.SignalUnfollow, -0.1},
		{models.SignalKind("bookmark"), 0.0},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			store := &fakeAppender{}
			ing := NewIngestor(store)

			sig := validSignal()
			sig.Kind = tt.kind
			// Caller-supplied weight must be overwritten by the table.
			sig.Weight = 42

			if err := ing.Ingest(context.Background(), sig); err != nil {
				t.Fatalf("ingest failed: %v", err)
			}
			if store.appended[0].Weight != tt.want {
				t.Errorf("weight for %s = %v, want %v", tt.kind, store.appended[0].Weight, tt.want)
			}
		})
	}
}

func TestIngestRejectsInvalidSignals(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.LearningSignal)
	}{
		{"missing user", func(s *models.LearningSignal) { s.UserID = "" }},
		{"missing kind", func(s *models.LearningSignal) { s.Kind = "" }},
		{"unknown entity kind", func(s *models.LearningSignal) { s.EntityKind = "gallery" }},
		{"missing entity id", func(s *models.LearningSignal) { s.EntityID = "" }},
		{"missing timestamp", func(s *models.LearningSignal) { s.Timestamp = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeAppender{}
			ing := NewIngestor(store)

			sig := validSignal()
			tt.mutate(sig)

			err := ing.Ingest(context.Background(), sig)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Errorf("expected *validation.Error, got %T: %v", err, err)
			}
			if len(store.appended) != 0 {
				t.Error("invalid signal must not reach the store")
			}
		})
	}
}

func TestIngestPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("store unreachable")
	ing := NewIngestor(&fakeAppender{err: storeErr})

	err := ing.Ingest(context.Background(), validSignal())
	if !errors.Is(err, storeErr) {
		t.Fatalf("store error not propagated unmodified: got %v", err)
	}
}

func TestSerializerRoundTrip(t *testing.T) {
	s := NewSerializer()
	sig := validSignal()
	sig.ID = "sig-1"
	sig.Metadata.Colors = []string{"blue", "gold"}

	data, err := s.Marshal(sig)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	got, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.ID != sig.ID || got.UserID != sig.UserID || got.Kind != sig.Kind {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.Metadata.Colors) != 2 {
		t.Errorf("metadata colors lost: %v", got.Metadata.Colors)
	}
}

func TestSerializerRejectsInvalid(t *testing.T) {
	s := NewSerializer()
	sig := validSignal()
	sig.UserID = ""

	if _, err := s.Marshal(sig); err == nil {
		t.Fatal("expected marshal of invalid signal to fail")
	}

	if _, err := s.Unmarshal([]byte("{not json")); err == nil {
		t.Fatal("expected unmarshal of garbage to fail")
	}
}

// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/mbellard/affinity/internal/learning"
	"github.com/mbellard/affinity/internal/models"
	"github.com/mbellard/affinity/internal/profiles"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeSummary struct{ summary *learning.Summary }

func (f *fakeSummary) LastSummary() *learning.Summary { return f.summary }

type fakeProfileReader struct {
	profile *models.LearnedPreferences
	err     error
}

func (f *fakeProfileReader) Get(ctx context.Context, userID string) (*models.LearnedPreferences, error) {
	return f.profile, f.err
}

type fakeOptIn struct {
	userID  string
	enabled bool
	err     error
}

func (f *fakeOptIn) SetLearningEnabled(ctx context.Context, userID string, enabled bool) error {
	f.userID = userID
	f.enabled = enabled
	return f.err
}

func newTestServer(pinger *fakePinger, summary *fakeSummary, reader *fakeProfileReader, optIn *fakeOptIn) http.Handler {
	if pinger == nil {
		pinger = &fakePinger{}
	}
	if summary == nil {
		summary = &fakeSummary{}
	}
	if reader == nil {
		reader = &fakeProfileReader{err: profiles.ErrProfileNotFound}
	}
	if optIn == nil {
		optIn = &fakeOptIn{}
	}
	return NewServer(pinger, summary, reader, optIn, nil).Router()
}

type fakeVectorBuilder struct {
	vector *models.PreferenceVector
	err    error
}

func (f *fakeVectorBuilder) Build(ctx context.Context, profile *models.LearnedPreferences) (*models.PreferenceVector, error) {
	return f.vector, f.err
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"healthy", nil, http.StatusOK},
		{"store down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakePinger{err: tt.pingErr}, nil, nil, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestLearningStatus(t *testing.T) {
	h := newTestServer(nil, &fakeSummary{summary: &learning.Summary{
		Total:     5,
		Succeeded: 4,
		Failed:    1,
		Failures:  []learning.UserFailure{{UserID: "user-3", Error: "boom"}},
	}}, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/learning/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		LastRun *learning.Summary `json:"last_run"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.LastRun == nil || body.LastRun.Failed != 1 {
		t.Errorf("unexpected body: %+v", body.LastRun)
	}
}

func TestLearningStatusBeforeFirstRun(t *testing.T) {
	h := newTestServer(nil, &fakeSummary{}, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/learning/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "null") {
		t.Errorf("expected null last_run, got %s", rec.Body.String())
	}
}

func TestGetPreferences(t *testing.T) {
	profile := models.NewLearnedPreferences("user-1")
	profile.Confidence = 0.5

	h := newTestServer(nil, nil, &fakeProfileReader{profile: profile}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/preferences", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got models.LearnedPreferences
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Confidence != 0.5 {
		t.Errorf("confidence = %v", got.Confidence)
	}
}

func TestGetPreferencesNotFound(t *testing.T) {
	h := newTestServer(nil, nil, &fakeProfileReader{err: profiles.ErrProfileNotFound}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/nobody/preferences", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetVector(t *testing.T) {
	profile := models.NewLearnedPreferences("user-1")
	builder := &fakeVectorBuilder{vector: &models.PreferenceVector{
		UserID: "user-1",
		Values: []float64{0.7, 0.3},
	}}
	h := NewServer(&fakePinger{}, &fakeSummary{}, &fakeProfileReader{profile: profile}, &fakeOptIn{}, builder).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/vector", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got models.PreferenceVector
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got.Values) != 2 {
		t.Errorf("unexpected vector: %+v", got)
	}
}

func TestGetVectorWithoutCatalog(t *testing.T) {
	h := newTestServer(nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/vector", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetVectorBuildFailure(t *testing.T) {
	profile := models.NewLearnedPreferences("user-1")
	builder := &fakeVectorBuilder{err: errors.New("catalog unreachable")}
	h := NewServer(&fakePinger{}, &fakeSummary{}, &fakeProfileReader{profile: profile}, &fakeOptIn{}, builder).Router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/vector", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSetOptIn(t *testing.T) {
	optIn := &fakeOptIn{}
	h := newTestServer(nil, nil, nil, optIn)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/user-7/learning",
		strings.NewReader(`{"enabled": true}`))
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if optIn.userID != "user-7" || !optIn.enabled {
		t.Errorf("opt-in not applied: %+v", optIn)
	}
}

func TestSetOptInBadBody(t *testing.T) {
	h := newTestServer(nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/user-7/learning",
		strings.NewReader(`{not json`))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package api exposes the engine's operational HTTP surface: health and
// metrics endpoints, the latest batch summary, learned profiles, and the
// learning opt-in toggle. Recomputation itself is never triggered over
// HTTP; it belongs to the scheduler.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbellard/affinity/internal/config"
	"github.com/mbellard/affinity/internal/learning"
	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/models"
	"github.com/mbellard/affinity/internal/profiles"
)

// Pinger reports event-store liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SummarySource exposes the latest batch summary. Implemented by the
// learning service.
type SummarySource interface {
	LastSummary() *learning.Summary
}

// ProfileReader fetches learned profiles.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (*models.LearnedPreferences, error)
}

// OptInWriter toggles a user's learning opt-in.
type OptInWriter interface {
	SetLearningEnabled(ctx context.Context, userID string, enabled bool) error
}

// VectorBuilder projects a profile onto a preference vector against the
// live catalog.
type VectorBuilder interface {
	Build(ctx context.Context, profile *models.LearnedPreferences) (*models.PreferenceVector, error)
}

// Server is the operational HTTP server.
type Server struct {
	store    Pinger
	summary  SummarySource
	profiles ProfileReader
	optIn    OptInWriter

	// builder is nil when no catalog service is configured.
	builder VectorBuilder
}

// NewServer builds the server from its collaborators. builder may be nil
// when vector construction is unavailable.
func NewServer(store Pinger, summary SummarySource, profileReader ProfileReader, optIn OptInWriter, builder VectorBuilder) *Server {
	return &Server{
		store:    store,
		summary:  summary,
		profiles: profileReader,
		optIn:    optIn,
		builder:  builder,
	}
}

// Router builds the chi router with all operational routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/learning/status", s.handleLearningStatus)
		r.Get("/users/{userID}/preferences", s.handleGetPreferences)
		r.Get("/users/{userID}/vector", s.handleGetVector)
		r.Put("/users/{userID}/learning", s.handleSetOptIn)
	})

	return r
}

// HTTPServer wraps the router in an http.Server bound per config.
func (s *Server) HTTPServer(cfg *config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLearningStatus(w http.ResponseWriter, r *http.Request) {
	summary := s.summary.LastSummary()
	if summary == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"last_run": nil,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_run": summary,
	})
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "no profile for user")
			return
		}
		logging.Error().Err(err).Str("user_id", userID).Msg("Profile fetch failed")
		writeError(w, http.StatusInternalServerError, "profile fetch failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleGetVector(w http.ResponseWriter, r *http.Request) {
	if s.builder == nil {
		writeError(w, http.StatusServiceUnavailable, "no catalog service configured")
		return
	}
	userID := chi.URLParam(r, "userID")

	profile, err := s.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "no profile for user")
			return
		}
		logging.Error().Err(err).Str("user_id", userID).Msg("Profile fetch failed")
		writeError(w, http.StatusInternalServerError, "profile fetch failed")
		return
	}

	vec, err := s.builder.Build(r.Context(), profile)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Vector build failed")
		writeError(w, http.StatusBadGateway, "vector build failed")
		return
	}
	writeJSON(w, http.StatusOK, vec)
}

type optInRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetOptIn(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req optInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.optIn.SetLearningEnabled(r.Context(), userID, req.Enabled); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Opt-in update failed")
		writeError(w, http.StatusInternalServerError, "opt-in update failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"enabled": req.Enabled,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Debug().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

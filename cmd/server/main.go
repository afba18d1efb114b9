// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Command server runs the preference-learning engine: the signal ingest
// pipeline, the scheduled batch recompute loop, and the operational HTTP
// surface, all under a suture supervision tree.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbellard/affinity/internal/api"
	"github.com/mbellard/affinity/internal/config"
	"github.com/mbellard/affinity/internal/ingest"
	"github.com/mbellard/affinity/internal/learning"
	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/profiles"
	"github.com/mbellard/affinity/internal/store"
	"github.com/mbellard/affinity/internal/supervisor"
	"github.com/mbellard/affinity/internal/supervisor/services"
	"github.com/mbellard/affinity/internal/vector"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("Starting affinity engine")

	db, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open signal store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Signal store close failed")
		}
	}()

	profileStore, err := profiles.Open(&cfg.Profiles)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open profile store")
	}
	defer func() {
		if err := profileStore.Close(); err != nil {
			logging.Warn().Err(err).Msg("Profile store close failed")
		}
	}()

	engine := learning.NewEngine(db, profileStore, db, &cfg.Learning)

	learningSvc := services.NewLearningService(engine, services.LearningServiceConfig{
		RunOnStartup:     cfg.Learning.RunOnStartup,
		BatchInterval:    cfg.Learning.BatchInterval,
		ExecutionTimeout: cfg.Learning.ExecutionTimeout,
	}, logging.Logger())

	// Vector construction needs the external catalog service; without it
	// the vector endpoint reports unavailable.
	var builder api.VectorBuilder
	if cfg.Catalog.URL != "" {
		catalog := vector.NewBreakerCatalog(vector.NewHTTPCatalog(cfg.Catalog.URL, cfg.Catalog.Timeout))
		builder = vector.NewBuilder(catalog)
	}

	httpServer := api.NewServer(db, learningSvc, profileStore, db, builder).HTTPServer(&cfg.Server)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddLearningService(learningSvc)
	tree.AddAPIService(services.NewHTTPService(httpServer, cfg.Server.Timeout, logging.Logger()))

	if cfg.NATS.Enabled {
		consumer, err := ingest.NewConsumer(&cfg.NATS, ingest.NewIngestor(db), nil)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to create signal consumer")
		}
		tree.AddIngestService(services.NewIngestService(consumer, logging.Logger()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		logging.Error().Err(err).Msg("Supervisor tree terminated")
	}
	logging.Info().Msg("Affinity engine stopped")
}

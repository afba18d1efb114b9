// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package metrics exposes Prometheus collectors for the learning engine:
// signal ingestion throughput, batch recompute outcomes and latency,
// vector construction, and circuit breaker state for the catalog client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Signal ingestion metrics
	SignalsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_signals_ingested_total",
			Help: "Total number of behavioral signals accepted by the ingestor",
		},
		[]string{"signal_kind", "entity_kind"},
	)

	SignalsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_signals_rejected_total",
			Help: "Total number of signals rejected at ingestion",
		},
		[]string{"reason"}, // "validation", "store"
	)

	// Batch recompute metrics
	BatchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_batch_run_duration_seconds",
			Help:    "Duration of full batch recompute runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	BatchUsersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_batch_users_processed_total",
			Help: "Total per-user recompute outcomes across batch runs",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_recompute_duration_seconds",
			Help:    "Duration of single-user profile recomputation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProfileConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "affinity_profile_confidence",
			Help:    "Confidence scores of recomputed profiles",
			Buckets: []float64{0.1, 0.3, 0.5, 0.7, 0.9},
		},
	)

	// Event store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "affinity_store_query_duration_seconds",
			Help:    "Duration of event store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "append", "query_by_user", "list_optin"
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_store_errors_total",
			Help: "Total number of event store errors",
		},
		[]string{"operation"},
	)

	// Vector builder metrics
	VectorsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affinity_vectors_built_total",
			Help: "Total number of preference vectors constructed",
		},
	)

	VectorDimensions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affinity_vector_dimensions",
			Help: "Dimension count of the most recently constructed preference vector",
		},
	)

	VectorBuildErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_vector_build_errors_total",
			Help: "Total number of failed vector constructions",
		},
		[]string{"reason"}, // "catalog", "profile"
	)

	// Circuit breaker metrics (catalog client)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "affinity_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affinity_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)
)

// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

// Package vector projects normalized preference profiles onto fixed-order
// numeric vectors for similarity search. Vector dimensions are defined by
// the catalog's current distinct attribute values, so vectors are only
// comparable within one construction epoch.
package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mbellard/affinity/internal/logging"
	"github.com/mbellard/affinity/internal/metrics"
	"github.com/mbellard/affinity/internal/models"
)

// CatalogProvider enumerates the distinct values currently present in the
// item catalog for one categorical attribute. The returned order is
// whatever the catalog uses, but must be stable within a single call.
type CatalogProvider interface {
	DistinctValues(ctx context.Context, attribute models.CatalogAttribute) ([]string, error)
}

// CatalogError marks a failed catalog enumeration. A vector build that hits
// one aborts entirely; a partial-dimension vector would silently corrupt
// downstream similarity comparisons.
type CatalogError struct {
	Attribute models.CatalogAttribute
	Err       error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog enumeration failed for attribute %s: %v", e.Attribute, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// BreakerCatalog wraps a CatalogProvider with a circuit breaker so a
// degraded catalog service fails vector builds fast instead of piling up
// slow calls.
type BreakerCatalog struct {
	inner CatalogProvider
	cb    *gobreaker.CircuitBreaker[[]string]
	name  string
}

// NewBreakerCatalog wraps the provider. Breaker configuration:
//   - max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - opens after 60% failure rate with minimum 10 requests
func NewBreakerCatalog(inner CatalogProvider) *BreakerCatalog {
	cbName := "catalog"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Catalog circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerCatalog{inner: inner, cb: cb, name: cbName}
}

// DistinctValues enumerates attribute values through the breaker. All
// failures, including breaker rejections, surface as CatalogError.
func (c *BreakerCatalog) DistinctValues(ctx context.Context, attribute models.CatalogAttribute) ([]string, error) {
	values, err := c.cb.Execute(func() ([]string, error) {
		return c.inner.DistinctValues(ctx, attribute)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		}
		return nil, &CatalogError{Attribute: attribute, Err: err}
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return values, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

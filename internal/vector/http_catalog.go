// Affinity - Marketplace Preference Learning Engine
// Copyright 2026 M. Bellard (mbellard)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbellard/affinity

package vector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/mbellard/affinity/internal/models"
)

// HTTPCatalog talks to the external catalog service over HTTP. The service
// owns the distinct-value enumeration; this client only fetches it.
type HTTPCatalog struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCatalog creates a catalog client for the given base URL.
func NewHTTPCatalog(baseURL string, timeout time.Duration) *HTTPCatalog {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCatalog{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type distinctValuesResponse struct {
	Values []string `json:"values"`
}

// DistinctValues fetches the attribute's current distinct values.
func (c *HTTPCatalog) DistinctValues(ctx context.Context, attribute models.CatalogAttribute) ([]string, error) {
	endpoint := fmt.Sprintf("%s/api/v1/attributes/%s/values",
		c.baseURL, url.PathEscape(string(attribute)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d for attribute %s", resp.StatusCode, attribute)
	}

	var body distinctValuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return body.Values, nil
}

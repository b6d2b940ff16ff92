// Package fhir provides the live FHIR data-server client and the
// pre-fetched snapshot fallback used when the server is unreachable.
package fhir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoBaseURL is returned when a search is attempted without a
// configured data-server endpoint.
var ErrNoBaseURL = errors.New("no FHIR base URL configured")

// DefaultTimeout bounds a single data-server query.
const DefaultTimeout = 10 * time.Second

// Client queries a FHIR data server over its REST search interface.
type Client struct {
	http *http.Client
}

// NewClient creates a data-server client with the given per-request
// timeout. A zero timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
	}
}

// Search performs a FHIR search against baseURL for the given resource
// type and returns the raw bundle JSON. Param values may be scalars or
// lists; list values become repeated query parameters.
func (c *Client) Search(ctx context.Context, baseURL string, resourceType string, params map[string]any) (string, error) {
	if baseURL == "" {
		return "", ErrNoBaseURL
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/" + resourceType

	query := url.Values{}
	for key, value := range params {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				query.Add(key, item)
			}
		case []any:
			for _, item := range v {
				query.Add(key, fmt.Sprintf("%v", item))
			}
		default:
			query.Add(key, fmt.Sprintf("%v", v))
		}
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build FHIR request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json")

	slog.Debug("FHIR search", "resource", resourceType, "url", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("FHIR request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read FHIR response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("FHIR server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return string(body), nil
}

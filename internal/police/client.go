// Package police wraps the UK Police Data API
// (https://data.police.uk/api) with a thin HTTP client and typed
// extractors per resource family.
package police

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public UK Police Data API endpoint.
const DefaultBaseURL = "https://data.police.uk/api"

// Client issues requests against the UK Police Data API. All calls are
// synchronous; failures are returned to the caller without retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig holds configuration for the API client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: DefaultBaseURL,
		Timeout: 120 * time.Second,
	}
}

// NewClient creates a client with default configuration.
func NewClient(logger *zap.Logger) *Client {
	cfg := DefaultClientConfig()
	cfg.Logger = logger
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("police api: %s returned status %d", e.Endpoint, e.StatusCode)
}

// get issues a GET request and decodes the JSON response into out.
// An empty body decodes to the zero value of out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("police api request", zap.String("endpoint", endpoint))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("police api request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		// Rate limited. Logged distinctly but not retried; the caller
		// decides whether to slow down.
		c.logger.Error("police api rate limit exceeded",
			zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: string(body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("police api error response",
			zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: string(body)}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		c.logger.Warn("police api returned empty body", zap.String("endpoint", endpoint))
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", endpoint, err)
	}
	return nil
}

// getList fetches an endpoint that yields a JSON array of objects.
// A missing or empty response yields an empty slice, never nil.
func (c *Client) getList(ctx context.Context, endpoint string, params url.Values) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.get(ctx, endpoint, params, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}

// getObject fetches an endpoint that yields a single JSON object.
func (c *Client) getObject(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, endpoint, params, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// AvailableDates returns the months with street-level crime data,
// newest first, from the crimes-street-dates endpoint.
func (c *Client) AvailableDates(ctx context.Context) ([]string, error) {
	entries, err := c.getList(ctx, "crimes-street-dates", nil)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		if d, ok := entry["date"].(string); ok {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// LatestDate returns the most recent month with crime data, falling
// back to the previous calendar month if availability cannot be read.
func (c *Client) LatestDate(ctx context.Context) string {
	dates, err := c.AvailableDates(ctx)
	if err == nil && len(dates) > 0 {
		return dates[0]
	}
	c.logger.Warn("could not determine latest available date, using previous month", zap.Error(err))
	prev := time.Now().AddDate(0, -1, 0)
	return prev.Format("2006-01")
}

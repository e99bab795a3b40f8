// Package opencage implements geocoding against the OpenCage API.
package opencage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/observability"
)

// Client implements geocode.Provider using the OpenCage Geocoding API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenCage geocoding client.
func NewClient(apiKey string, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Forward converts a free-text place name to coordinates. The first match
// wins; an empty result set yields domain.ErrNotFound.
func (c *Client) Forward(ctx context.Context, placeName string) (domain.Coordinates, error) {
	result, err := c.doRequest(ctx, placeName, "forward")
	if err != nil {
		return domain.Coordinates{}, err
	}
	return domain.Coordinates{Lat: result.Geometry.Lat, Lon: result.Geometry.Lng}, nil
}

// Reverse converts a coordinate pair to a display name.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	query := fmt.Sprintf("%f,%f", lat, lon)
	result, err := c.doRequest(ctx, query, "reverse")
	if err != nil {
		return "", err
	}
	return result.Formatted, nil
}

func (c *Client) doRequest(ctx context.Context, query, method string) (result, error) {
	params := url.Values{
		"q":     {query},
		"key":   {c.apiKey},
		"limit": {"1"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return result{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return result{}, classifyTransportError(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return result{}, fmt.Errorf("%w: %s geocode: status %d: %s", domain.ErrProviderUnreachable, method, resp.StatusCode, body)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return result{}, fmt.Errorf("%w: %s geocode: decode: %v", domain.ErrProviderUnreachable, method, err)
	}

	if len(decoded.Results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues(method, "not_found").Inc()
		return result{}, fmt.Errorf("%w: no geocoding results for %q", domain.ErrNotFound, query)
	}

	c.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()
	return decoded.Results[0], nil
}

// classifyTransportError distinguishes deadline expiry from other transport
// faults so callers can present different messages.
func classifyTransportError(method string, err error) error {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
		return fmt.Errorf("%w: %s geocode: %v", domain.ErrProviderTimeout, method, err)
	}
	return fmt.Errorf("%w: %s geocode: %v", domain.ErrProviderUnreachable, method, err)
}

// OpenCage API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Geometry  geometry `json:"geometry"`
	Formatted string   `json:"formatted"`
}

type geometry struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

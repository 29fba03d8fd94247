// Package client talks to the open-meteo geocoding and forecast APIs.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"idpweather/internal/weather/metrics"
	"idpweather/internal/weather/models"
	"idpweather/pkg/platform/sentinel"
)

const maxBodyBytes = 1 << 20

// Client calls open-meteo. Upstream bodies are never surfaced in errors.
type Client struct {
	http         *http.Client
	geocodingURL string
	forecastURL  string
	metrics      *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithMetrics enables upstream call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

// New builds a client. timeout bounds each upstream call end to end.
func New(geocodingURL, forecastURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: timeout},
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geocodingResponse struct {
	Results []models.Location `json:"results"`
}

type forecastResponse struct {
	CurrentWeather *models.CurrentWeather `json:"current_weather"`
}

// Geocode resolves name to its best match. No match returns sentinel.ErrNotFound.
func (c *Client) Geocode(ctx context.Context, name string) (*models.Location, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var resp geocodingResponse
	if err := c.getJSON(ctx, "geocoding", c.geocodingURL, q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("geocode %q: %w", name, sentinel.ErrNotFound)
	}
	loc := resp.Results[0]
	return &loc, nil
}

// Forecast fetches current conditions at the given coordinates.
func (c *Client) Forecast(ctx context.Context, at models.Coordinates) (*models.CurrentWeather, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("current_weather", "true")

	var resp forecastResponse
	if err := c.getJSON(ctx, "forecast", c.forecastURL, q, &resp); err != nil {
		return nil, err
	}
	if resp.CurrentWeather == nil {
		return nil, fmt.Errorf("forecast: response has no current_weather: %w", sentinel.ErrUnavailable)
	}
	return resp.CurrentWeather, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, base string, q url.Values, target any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.metrics.ObserveUpstream(endpoint, outcome, start)
	}()

	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%s: bad base URL: %w", endpoint, err)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %v: %w", endpoint, err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%s: upstream status %d: %w", endpoint, resp.StatusCode, sentinel.ErrUnavailable)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(target); err != nil {
		return fmt.Errorf("%s: decode response: %v: %w", endpoint, err, sentinel.ErrUnavailable)
	}
	return nil
}

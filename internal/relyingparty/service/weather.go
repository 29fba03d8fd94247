package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"idpweather/internal/relyingparty/metrics"
	weather "idpweather/internal/weather/models"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/httputil"
)

const maxResponseBytes = 1 << 20

// WeatherClient calls the protected weather service on behalf of a session.
type WeatherClient struct {
	http    *http.Client
	baseURL string
	metrics *metrics.Metrics
}

// WeatherOption configures a WeatherClient.
type WeatherOption func(*WeatherClient)

// WithWeatherHTTPClient replaces the default http.Client.
func WithWeatherHTTPClient(c *http.Client) WeatherOption {
	return func(wc *WeatherClient) { wc.http = c }
}

// WithWeatherMetrics enables per-call metrics.
func WithWeatherMetrics(m *metrics.Metrics) WeatherOption {
	return func(wc *WeatherClient) { wc.metrics = m }
}

// NewWeatherClient builds a client for the service at baseURL.
func NewWeatherClient(baseURL string, opts ...WeatherOption) *WeatherClient {
	c := &WeatherClient{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current fetches the current weather for city using the bearer token.
// Rejections keep the service's status class: 401 maps to CodeUnauthorized,
// 403 to CodeForbidden, 404 to CodeNotFound.
func (c *WeatherClient) Current(ctx context.Context, token, city string) (*weather.CurrentWeather, error) {
	start := time.Now()
	endpoint := c.baseURL + "/weather?" + url.Values{"city": {city}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build weather request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveServiceRequest("error", start)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "weather service unreachable")
	}
	defer resp.Body.Close()
	c.metrics.ObserveServiceRequest(strconv.Itoa(resp.StatusCode), start)

	body := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}

	var current weather.CurrentWeather
	if err := json.NewDecoder(body).Decode(&current); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "invalid weather response")
	}
	return &current, nil
}

func statusError(status int, body io.Reader) error {
	var envelope httputil.ErrorResponse
	_ = json.NewDecoder(body).Decode(&envelope)
	msg := envelope.ErrorDescription
	if msg == "" {
		msg = fmt.Sprintf("weather service returned %d", status)
	}

	switch status {
	case http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, msg)
	case http.StatusForbidden:
		return dErrors.New(dErrors.CodeForbidden, msg)
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, msg)
	case http.StatusBadRequest:
		return dErrors.New(dErrors.CodeBadRequest, msg)
	default:
		return dErrors.New(dErrors.CodeUpstreamUnavailable, msg)
	}
}

// Package service answers weather queries for authenticated callers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"idpweather/internal/weather/metrics"
	"idpweather/internal/weather/models"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/sentinel"
	"idpweather/pkg/requestcontext"
)

// Upstream is the geocoding and forecast provider.
type Upstream interface {
	Geocode(ctx context.Context, name string) (*models.Location, error)
	Forecast(ctx context.Context, at models.Coordinates) (*models.CurrentWeather, error)
}

// Service resolves a query to coordinates and fetches current conditions.
type Service struct {
	upstream Upstream
	logger   *slog.Logger
	metrics  *metrics.Metrics
	lookups  singleflight.Group
}

// Option configures optional collaborators.
type Option func(*Service)

// WithMetrics enables coalescing metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(upstream Upstream, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{upstream: upstream, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CityName is the part of city before the first comma, trimmed.
func CityName(city string) string {
	name, _, _ := strings.Cut(city, ",")
	return strings.TrimSpace(name)
}

// Current returns the current weather for q.
func (s *Service) Current(ctx context.Context, q models.Query) (*models.CurrentWeather, error) {
	at := q.Coordinates
	if name := CityName(q.City); name != "" {
		loc, err := s.geocode(ctx, name)
		if err != nil {
			return nil, err
		}
		at = &models.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude}
	}
	if at == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Latitude and longitude OR city are required")
	}

	current, err := s.upstream.Forecast(ctx, *at)
	if err != nil {
		s.logger.ErrorContext(ctx, "forecast lookup failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "Failed to fetch weather data")
	}
	return current, nil
}

// geocode shares one upstream call among concurrent lookups of the same city.
// The shared call is detached from any single caller's cancellation and is
// bounded by the client timeout instead.
func (s *Service) geocode(ctx context.Context, name string) (*models.Location, error) {
	key := strings.ToLower(name)
	v, err, shared := s.lookups.Do(key, func() (any, error) {
		return s.upstream.Geocode(context.WithoutCancel(ctx), name)
	})
	if shared {
		s.metrics.IncrementShared()
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "City not found")
		}
		s.logger.ErrorContext(ctx, "geocoding failed",
			"city", name,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "Failed to geocode city")
	}
	return v.(*models.Location), nil
}

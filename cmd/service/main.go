package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/crypto/bcrypt"

	"idpweather/internal/credentials"
	jwttoken "idpweather/internal/jwt_token"
	"idpweather/internal/platform/config"
	"idpweather/internal/platform/httpserver"
	"idpweather/internal/platform/logger"
	"idpweather/internal/platform/metrics"
	weatherclient "idpweather/internal/weather/client"
	weatherhandler "idpweather/internal/weather/handler"
	weathermetrics "idpweather/internal/weather/metrics"
	weatherservice "idpweather/internal/weather/service"
)

// main wires the weather resource server: audience key registry, token
// verifier, open-meteo client and the protected routes.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadService()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Only signing keys are read here; user hashes are never checked.
	registry, err := credentials.Load(cfg.CredentialsFile, bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	reg := metrics.NewRegistry()
	m := weathermetrics.New(reg)
	upstream := weatherclient.New(cfg.GeocodingURL, cfg.ForecastURL, cfg.UpstreamTimeout, weatherclient.WithMetrics(m))
	svc := weatherservice.New(upstream, log, weatherservice.WithMetrics(m))
	verifier := jwttoken.NewVerifier(registry, cfg.ExpectedIssuer)

	router := httpserver.NewRouter(log, reg, cfg.UpstreamTimeout*2)
	weatherhandler.New(svc, verifier, log).Register(router)

	log.Info("weather service starting", "addr", cfg.Addr, "audiences", registry.ClientIDs())
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), log)
}

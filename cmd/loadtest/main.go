package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"idpweather/internal/platform/config"
	"idpweather/internal/platform/httpserver"
	"idpweather/internal/platform/logger"
	"idpweather/internal/platform/metrics"
	redisclient "idpweather/internal/platform/redis"
	rphandler "idpweather/internal/relyingparty/handler"
	rpmetrics "idpweather/internal/relyingparty/metrics"
	"idpweather/internal/relyingparty/models"
	rpservice "idpweather/internal/relyingparty/service"
	"idpweather/internal/storage"
)

// main wires the load-test client (app-2 by default). Runs stream for as long
// as they take, so the router and server carry no write deadline.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadLoadTestApp()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log).With("client_id", cfg.ClientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}

	reg := metrics.NewRegistry()
	m := rpmetrics.New(reg, cfg.ClientID)
	sessions, err := rpservice.NewSessionAdapter(cfg,
		storage.Open[models.Session](rc.Universal(), "rp:"+cfg.ClientID+":session:"),
		log,
		rpservice.WithAdapterMetrics(m),
	)
	if err != nil {
		return err
	}
	weather := rpservice.NewWeatherClient(cfg.ServiceURL, rpservice.WithWeatherMetrics(m))
	tester := rpservice.NewLoadTester(weather, cfg.Requests, cfg.Concurrency)

	router := httpserver.NewRouter(log, reg, 0)
	rphandler.New(sessions, weather, cfg.ClientID, cfg.DefaultCity, log,
		rphandler.WithLoadTester(tester),
	).Register(router)

	log.Info("load test client starting",
		"addr", cfg.Addr,
		"requests", cfg.Requests,
		"concurrency", cfg.Concurrency,
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router, httpserver.WithWriteTimeout(0)), log)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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

// main wires the weather UI client (app-1 by default).
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "webapp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWebApp()
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

	router := httpserver.NewRouter(log, reg, 30*time.Second)
	rphandler.New(sessions, weather, cfg.ClientID, cfg.DefaultCity, log).Register(router)

	log.Info("weather client starting", "addr", cfg.Addr, "idp", cfg.IdPURL, "service", cfg.ServiceURL)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), log)
}

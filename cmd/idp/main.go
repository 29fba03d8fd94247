package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	authhandler "idpweather/internal/auth/handler"
	authmetrics "idpweather/internal/auth/metrics"
	"idpweather/internal/auth/models"
	authservice "idpweather/internal/auth/service"
	"idpweather/internal/credentials"
	jwttoken "idpweather/internal/jwt_token"
	"idpweather/internal/platform/config"
	"idpweather/internal/platform/httpserver"
	"idpweather/internal/platform/logger"
	"idpweather/internal/platform/metrics"
	redisclient "idpweather/internal/platform/redis"
	"idpweather/internal/storage"
	"idpweather/pkg/platform/middleware/ratelimit"
)

const (
	requestTimeout   = 30 * time.Second
	limiterPruneTick = time.Minute
	limiterIdle      = 10 * time.Minute
)

// main wires the identity provider: credential registry, code and session
// tables, token signer, HTTP routes and the expire sweep.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "idp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadIdP()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := credentials.Load(cfg.CredentialsFile, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		log.Info("using redis for codes and sessions")
	}

	reg := metrics.NewRegistry()
	svc := authservice.New(
		registry,
		storage.Open[models.AuthorizationCode](rc.Universal(), "idp:code:"),
		storage.Open[models.Session](rc.Universal(), "idp:session:"),
		jwttoken.NewSigner(cfg.Issuer, cfg.TokenTTL),
		log,
		authservice.Config{
			CodeTTL:             cfg.CodeTTL,
			SessionTTL:          cfg.SessionTTL,
			RequireClientSecret: cfg.RequireClientSecret,
		},
		authservice.WithMetrics(authmetrics.New(reg)),
	)
	if !cfg.RequireClientSecret {
		log.Warn("token requests without client_secret are accepted; set IDP_REQUIRE_CLIENT_SECRET=true to reject them")
	}

	limiter := ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	router := httpserver.NewRouter(log, reg, requestTimeout, httpserver.WithTrustedProxyHeaders(cfg.TrustProxyHeaders))
	authhandler.New(svc, log,
		authhandler.WithRateLimiter(limiter),
		authhandler.WithSecureCookies(cfg.CookieSecure),
	).Register(router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := svc.StartSweeper(ctx, cfg.SweepInterval); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		limiter.StartPruner(ctx, limiterPruneTick, limiterIdle)
		return nil
	})
	g.Go(func() error {
		return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), log)
	})

	log.Info("identity provider starting", "addr", cfg.Addr, "issuer", cfg.Issuer, "clients", registry.ClientIDs())
	return g.Wait()
}

// Package config loads per-process configuration from the environment.
//
// Each role has its own struct. The relying-party apps share ClientApp and
// read it under a role prefix (WEBAPP_, LOADTEST_) so both can run from the
// same shell environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Log selects the slog handler.
type Log struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// RedisConfig holds the shared-table backend settings. An empty URL keeps
// tables in process memory.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
}

// IdP configures the identity provider.
type IdP struct {
	Addr                string        `env:"IDP_ADDR"                  envDefault:":3000"`
	Issuer              string        `env:"IDP_ISSUER"                envDefault:"http://localhost:3000"`
	CodeTTL             time.Duration `env:"IDP_CODE_TTL"              envDefault:"60s"`
	TokenTTL            time.Duration `env:"IDP_TOKEN_TTL"             envDefault:"1h"`
	SessionTTL          time.Duration `env:"IDP_SESSION_TTL"           envDefault:"8h"`
	SweepInterval       time.Duration `env:"IDP_SWEEP_INTERVAL"        envDefault:"30s"`
	RequireClientSecret bool          `env:"IDP_REQUIRE_CLIENT_SECRET" envDefault:"false"`
	CookieSecure        bool          `env:"IDP_COOKIE_SECURE"         envDefault:"false"`
	RateLimitPerSecond  float64       `env:"IDP_RATE_LIMIT_PER_SECOND" envDefault:"5"`
	RateLimitBurst      int           `env:"IDP_RATE_LIMIT_BURST"      envDefault:"20"`
	TrustProxyHeaders   bool          `env:"IDP_TRUST_PROXY_HEADERS"   envDefault:"false"`
	CredentialsFile     string        `env:"CREDENTIALS_FILE"`
	Redis               RedisConfig
	Log                 Log
}

// Service configures the weather resource server.
type Service struct {
	Addr            string        `env:"SERVICE_ADDR"             envDefault:":3010"`
	ExpectedIssuer  string        `env:"SERVICE_EXPECTED_ISSUER"`
	GeocodingURL    string        `env:"SERVICE_GEOCODING_URL"    envDefault:"https://geocoding-api.open-meteo.com/v1/search"`
	ForecastURL     string        `env:"SERVICE_FORECAST_URL"     envDefault:"https://api.open-meteo.com/v1/forecast"`
	UpstreamTimeout time.Duration `env:"SERVICE_UPSTREAM_TIMEOUT" envDefault:"10s"`
	CredentialsFile string        `env:"CREDENTIALS_FILE"`
	Log             Log
}

// MaxCodeTTL caps the authorization code lifetime.
const MaxCodeTTL = 60 * time.Second

// MinSessionKeyLength is the shortest accepted cookie signing key.
const MinSessionKeyLength = 32

// ClientApp configures a relying-party application.
type ClientApp struct {
	Addr         string        `env:"ADDR"`
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	RedirectURL  string        `env:"REDIRECT_URL"`
	IdPURL       string        `env:"IDP_URL"`
	IdPTokenURL  string        `env:"IDP_TOKEN_URL"`
	ServiceURL   string        `env:"SERVICE_URL"`
	SessionKey   string        `env:"SESSION_KEY"`
	SessionTTL   time.Duration `env:"SESSION_TTL"`
	CookieSecure bool          `env:"COOKIE_SECURE"`
	DefaultCity  string        `env:"DEFAULT_CITY"`
	Requests     int           `env:"REQUESTS"`
	Concurrency  int           `env:"CONCURRENCY"`
	Redis        RedisConfig
	Log          Log
}

// TokenURL is the server-to-server token endpoint; it defaults to the
// browser-facing IdP base.
func (c ClientApp) TokenURL() string {
	if c.IdPTokenURL != "" {
		return c.IdPTokenURL
	}
	return c.IdPURL + "/token"
}

// AuthURL is the browser-facing authorization endpoint.
func (c ClientApp) AuthURL() string {
	return c.IdPURL + "/authorize"
}

// DefaultWebApp is the weather UI client registration.
func DefaultWebApp() ClientApp {
	return ClientApp{
		Addr:        ":3030",
		ClientID:    "app-1",
		RedirectURL: "http://localhost:3030/callback",
		DefaultCity: "Brooklyn, New York",
		Requests:    300,
		Concurrency: 50,
		SessionTTL:  time.Hour,
		IdPURL:      "http://localhost:3000",
		ServiceURL:  "http://localhost:3010",
	}.withSecret("secret-1")
}

// DefaultLoadTestApp is the load-test client registration.
func DefaultLoadTestApp() ClientApp {
	return ClientApp{
		Addr:        ":3031",
		ClientID:    "app-2",
		RedirectURL: "http://localhost:3031/callback",
		DefaultCity: "Brooklyn, New York",
		Requests:    300,
		Concurrency: 50,
		SessionTTL:  time.Hour,
		IdPURL:      "http://localhost:3000",
		ServiceURL:  "http://localhost:3010",
	}.withSecret("secret-2")
}

func (c ClientApp) withSecret(secret string) ClientApp {
	c.ClientSecret = secret
	return c
}

// LoadIdP reads IdP settings from the process environment.
func LoadIdP() (IdP, error) {
	var cfg IdP
	if err := parse(&cfg, "", nil); err != nil {
		return IdP{}, err
	}
	return cfg, cfg.Validate()
}

// LoadService reads weather service settings from the process environment.
func LoadService() (Service, error) {
	var cfg Service
	if err := parse(&cfg, "", nil); err != nil {
		return Service{}, err
	}
	return cfg, cfg.Validate()
}

// LoadWebApp reads WEBAPP_-prefixed settings over the app-1 defaults.
func LoadWebApp() (ClientApp, error) {
	return loadClientApp(DefaultWebApp(), "WEBAPP_", nil)
}

// LoadLoadTestApp reads LOADTEST_-prefixed settings over the app-2 defaults.
func LoadLoadTestApp() (ClientApp, error) {
	return loadClientApp(DefaultLoadTestApp(), "LOADTEST_", nil)
}

func loadClientApp(cfg ClientApp, prefix string, environ map[string]string) (ClientApp, error) {
	if err := parse(&cfg, prefix, environ); err != nil {
		return ClientApp{}, err
	}
	return cfg, cfg.Validate()
}

// parse reads environ when non-nil, otherwise the process environment.
// Fields without a variable or envDefault keep their current value.
func parse(target any, prefix string, environ map[string]string) error {
	opts := env.Options{Prefix: prefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects settings the IdP cannot run with.
func (c IdP) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("IDP_ADDR is required"))
	}
	if c.CodeTTL <= 0 {
		errs = append(errs, errors.New("IDP_CODE_TTL must be positive"))
	}
	if c.CodeTTL > MaxCodeTTL {
		errs = append(errs, fmt.Errorf("IDP_CODE_TTL must not exceed %s", MaxCodeTTL))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("IDP_TOKEN_TTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("IDP_SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// Validate rejects settings the weather service cannot run with.
func (c Service) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("SERVICE_ADDR is required"))
	}
	if c.GeocodingURL == "" || c.ForecastURL == "" {
		errs = append(errs, errors.New("upstream URLs are required"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("SERVICE_UPSTREAM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Validate rejects settings a relying party cannot run with.
func (c ClientApp) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("ADDR is required"))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("CLIENT_ID is required"))
	}
	if c.RedirectURL == "" {
		errs = append(errs, errors.New("REDIRECT_URL is required"))
	}
	if c.IdPURL == "" || c.ServiceURL == "" {
		errs = append(errs, errors.New("IDP_URL and SERVICE_URL are required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SessionKey != "" && len(c.SessionKey) < MinSessionKeyLength {
		errs = append(errs, fmt.Errorf("SESSION_KEY must be at least %d bytes", MinSessionKeyLength))
	}
	if c.Requests <= 0 || c.Concurrency <= 0 {
		errs = append(errs, errors.New("REQUESTS and CONCURRENCY must be positive"))
	}
	return errors.Join(errs...)
}

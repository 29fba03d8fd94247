// Package service implements the identity provider's authorization-code flow:
// authorize, login, code minting and token exchange.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"idpweather/internal/auth/metrics"
	"idpweather/internal/auth/models"
	"idpweather/internal/credentials"
	jwttoken "idpweather/internal/jwt_token"
	"idpweather/internal/platform/secrets"
	"idpweather/internal/storage"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/sentinel"
	"idpweather/pkg/requestcontext"
)

// CredentialStore is the read-only registry the flow authenticates against.
type CredentialStore interface {
	Client(id string) (*credentials.Client, error)
	ValidateRedirect(clientID, redirectURI string) (*credentials.Client, error)
	AuthenticateUser(username, password string) (*credentials.User, error)
}

// TokenSigner mints access tokens.
type TokenSigner interface {
	Sign(key []byte, audience string, subject jwttoken.Subject, now time.Time) (string, error)
	TTL() time.Duration
}

// Config holds the flow's lifetimes and policy switches.
type Config struct {
	CodeTTL             time.Duration
	SessionTTL          time.Duration
	RequireClientSecret bool
}

// Service owns the authorization code and IdP session tables.
type Service struct {
	registry CredentialStore
	codes    storage.Store[models.AuthorizationCode]
	sessions storage.Store[models.Session]
	signer   TokenSigner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      Config
}

// Option configures optional collaborators.
type Option func(*Service)

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(
	registry CredentialStore,
	codes storage.Store[models.AuthorizationCode],
	sessions storage.Store[models.Session],
	signer TokenSigner,
	logger *slog.Logger,
	cfg Config,
	opts ...Option,
) *Service {
	s := &Service{
		registry: registry,
		codes:    codes,
		sessions: sessions,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize validates the client and redirect URI, then either mints a code
// for an already signed-in browser or asks for the login form.
func (s *Service) Authorize(ctx context.Context, req models.AuthorizeRequest) (*models.AuthorizeResult, error) {
	if _, err := s.registry.ValidateRedirect(req.ClientID, req.RedirectURI); err != nil {
		return nil, err
	}

	user, ok := s.currentUser(ctx, req.SessionID)
	if !ok {
		return &models.AuthorizeResult{Login: &models.LoginForm{
			ClientID:    req.ClientID,
			RedirectURI: req.RedirectURI,
			State:       req.State,
		}}, nil
	}

	redirect, err := s.issueCode(ctx, req.ClientID, req.RedirectURI, req.State, user)
	if err != nil {
		return nil, err
	}
	return &models.AuthorizeResult{RedirectURL: redirect}, nil
}

// Login authenticates the resource owner, opens an IdP session and mints a code.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	if _, err := s.registry.ValidateRedirect(req.ClientID, req.RedirectURI); err != nil {
		return nil, err
	}

	u, err := s.registry.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
			s.metrics.IncrementLoginFailures()
			s.logger.InfoContext(ctx, "login rejected",
				"client_id", req.ClientID,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to authenticate user")
	}
	user := models.BoundUser{ID: u.ID, Username: u.Username, Name: u.Name}

	session, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	redirect, err := s.issueCode(ctx, req.ClientID, req.RedirectURI, req.State, user)
	if err != nil {
		return nil, err
	}
	return &models.LoginResult{RedirectURL: redirect, Session: session}, nil
}

// Logout ends an IdP session. Unknown ids are ignored.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if _, err := s.sessions.Delete(ctx, sessionID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	return nil
}

func (s *Service) currentUser(ctx context.Context, sessionID string) (models.BoundUser, bool) {
	if sessionID == "" {
		return models.BoundUser{}, false
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "session lookup failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return models.BoundUser{}, false
	}
	if session.IsExpired(requestcontext.Now(ctx)) {
		_, _ = s.sessions.Delete(ctx, sessionID)
		return models.BoundUser{}, false
	}
	return session.User, true
}

func (s *Service) openSession(ctx context.Context, user models.BoundUser) (models.Session, error) {
	id, err := secrets.Generate()
	if err != nil {
		return models.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	session := models.Session{
		ID:        id,
		User:      user,
		ExpiresAt: requestcontext.Now(ctx).Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Put(ctx, id, session, session.ExpiresAt); err != nil {
		return models.Session{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	return session, nil
}

// issueCode stores a fresh code and returns redirectURI with code and state appended.
func (s *Service) issueCode(ctx context.Context, clientID, redirectURI, state string, user models.BoundUser) (string, error) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidRedirectURI, "redirect_uri is not a valid URL")
	}

	code, err := secrets.Generate()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate authorization code")
	}
	now := requestcontext.Now(ctx)
	record := models.AuthorizationCode{
		Code:        code,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		User:        user,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.cfg.CodeTTL),
	}
	if err := s.codes.Put(ctx, code, record, record.ExpiresAt); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store authorization code")
	}
	s.metrics.IncrementCodesIssued()

	q := target.Query()
	q.Set("code", code)
	q.Set("state", state)
	target.RawQuery = q.Encode()
	return target.String(), nil
}

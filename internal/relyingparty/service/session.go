// Package service implements the relying-party side of the authorization-code
// flow: the session adapter, the weather service client and the load-test runner.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"idpweather/internal/platform/config"
	"idpweather/internal/platform/secrets"
	"idpweather/internal/relyingparty/metrics"
	"idpweather/internal/relyingparty/models"
	"idpweather/internal/storage"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/sentinel"
	"idpweather/pkg/requestcontext"
)

const (
	sessionIDKey = "sid"
	stateKey     = "state"
)

// SessionAdapter drives the browser side of the flow. The cookie carries only
// the session handle and the pending state; access tokens stay server side.
type SessionAdapter struct {
	oauth      *oauth2.Config
	cookies    *sessions.CookieStore
	cookieName string
	sessions   storage.Store[models.Session]
	httpClient *http.Client
	sessionTTL time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// AdapterOption configures a SessionAdapter.
type AdapterOption func(*SessionAdapter)

// WithTokenHTTPClient sets the client used for the server-to-server code exchange.
func WithTokenHTTPClient(c *http.Client) AdapterOption {
	return func(a *SessionAdapter) { a.httpClient = c }
}

// WithAdapterMetrics enables login metrics.
func WithAdapterMetrics(m *metrics.Metrics) AdapterOption {
	return func(a *SessionAdapter) { a.metrics = m }
}

// NewSessionAdapter builds the adapter for one registered client. An empty
// SessionKey gets a random per-process key, so cookies do not survive a restart.
func NewSessionAdapter(cfg config.ClientApp, store storage.Store[models.Session], logger *slog.Logger, opts ...AdapterOption) (*SessionAdapter, error) {
	key := cfg.SessionKey
	if key == "" {
		generated, err := secrets.Generate()
		if err != nil {
			return nil, err
		}
		key = generated
	}
	if len(key) < config.MinSessionKeyLength {
		return nil, errors.New("session key is too short")
	}

	cookies := sessions.NewCookieStore([]byte(key))
	cookies.MaxAge(int(cfg.SessionTTL.Seconds()))
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.Secure = cfg.CookieSecure
	cookies.Options.SameSite = http.SameSiteLaxMode

	a := &SessionAdapter{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL(),
				TokenURL:  cfg.TokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		cookies: cookies,
		// Both apps usually share a host, and cookies ignore the port.
		cookieName: "rp_session_" + cfg.ClientID,
		sessions:   store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sessionTTL: cfg.SessionTTL,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// CookieName is the name of the cookie carrying the session handle.
func (a *SessionAdapter) CookieName() string {
	return a.cookieName
}

// BeginLogin records a fresh state value in the cookie and returns the
// authorization URL to redirect the browser to.
func (a *SessionAdapter) BeginLogin(w http.ResponseWriter, r *http.Request) (string, error) {
	state, err := secrets.Generate()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate state")
	}
	sess := a.cookieSession(r)
	sess.Values[stateKey] = state
	if err := sess.Save(r, w); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session cookie")
	}
	return a.oauth.AuthCodeURL(state), nil
}

// CompleteLogin handles the authorization callback: it checks the state,
// exchanges the code and binds the token to a new session handle.
func (a *SessionAdapter) CompleteLogin(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	q := r.URL.Query()

	code := q.Get("code")
	if code == "" {
		a.metrics.IncrementLogins(string(dErrors.CodeBadRequest))
		return dErrors.New(dErrors.CodeBadRequest, "Authorization code missing")
	}

	sess := a.cookieSession(r)
	expected, _ := sess.Values[stateKey].(string)
	delete(sess.Values, stateKey)
	if expected == "" || !secrets.Equal(expected, q.Get("state")) {
		a.metrics.IncrementLogins("state_mismatch")
		return dErrors.New(dErrors.CodeBadRequest, "state mismatch")
	}

	tok, err := a.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, a.httpClient), code)
	if err != nil {
		return a.exchangeError(ctx, err)
	}

	now := requestcontext.Now(ctx)
	expiresAt := now.Add(a.sessionTTL)
	if !tok.Expiry.IsZero() && tok.Expiry.Before(expiresAt) {
		expiresAt = tok.Expiry
	}

	if prev, ok := sess.Values[sessionIDKey].(string); ok && prev != "" {
		if _, err := a.sessions.Delete(ctx, prev); err != nil {
			a.logger.WarnContext(ctx, "failed to drop previous session", "error", err)
		}
	}

	id, err := secrets.Generate()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate session id")
	}
	if err := a.sessions.Put(ctx, id, models.Session{
		ID:          id,
		AccessToken: tok.AccessToken,
		ExpiresAt:   expiresAt,
	}, expiresAt); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session")
	}

	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session cookie")
	}
	a.metrics.IncrementLogins("ok")
	return nil
}

func (a *SessionAdapter) exchangeError(ctx context.Context, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
		a.logger.WarnContext(ctx, "token exchange rejected",
			"status", re.Response.StatusCode,
			"error_code", re.ErrorCode,
			"error", err,
		)
		a.metrics.IncrementLogins(string(dErrors.CodeUnauthorized))
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "Authentication failed")
	}
	a.logger.ErrorContext(ctx, "token exchange failed", "error", err)
	a.metrics.IncrementLogins(string(dErrors.CodeUpstreamUnavailable))
	return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "Authentication failed")
}

// AccessToken returns the token bound to the request's session, if the
// session exists and has not expired.
func (a *SessionAdapter) AccessToken(r *http.Request) (string, bool) {
	ctx := r.Context()
	id, _ := a.cookieSession(r).Values[sessionIDKey].(string)
	if id == "" {
		return "", false
	}
	s, err := a.sessions.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			a.logger.WarnContext(ctx, "session lookup failed", "error", err)
		}
		return "", false
	}
	if s.IsExpired(requestcontext.Now(ctx)) {
		return "", false
	}
	return s.AccessToken, true
}

// Logout destroys the server-side session and expires the cookie.
func (a *SessionAdapter) Logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	sess := a.cookieSession(r)
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		if _, err := a.sessions.Delete(ctx, id); err != nil {
			a.logger.WarnContext(ctx, "failed to delete session", "error", err)
		}
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear session cookie")
	}
	return nil
}

// cookieSession never fails: an unreadable cookie (rotated key, tampering)
// yields a fresh session.
func (a *SessionAdapter) cookieSession(r *http.Request) *sessions.Session {
	sess, err := a.cookies.Get(r, a.cookieName)
	if err != nil {
		a.logger.DebugContext(r.Context(), "discarding unreadable session cookie", "error", err)
	}
	return sess
}

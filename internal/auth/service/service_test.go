package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"idpweather/internal/auth/metrics"
	"idpweather/internal/auth/models"
	"idpweather/internal/credentials"
	jwttoken "idpweather/internal/jwt_token"
	"idpweather/internal/storage"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/sentinel"
	"idpweather/pkg/requestcontext"
)

const (
	issuer       = "http://localhost:3000"
	app1Redirect = "http://localhost:3030/callback"
	app2Redirect = "http://localhost:3031/callback"
)

type ServiceSuite struct {
	suite.Suite
	registry *credentials.Registry
	codes    *storage.Memory[models.AuthorizationCode]
	sessions *storage.Memory[models.Session]
	metrics  *metrics.Metrics
	service  *Service
	verifier *jwttoken.Verifier
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	r, err := credentials.Build(credentials.DefaultFile(), bcrypt.MinCost)
	s.Require().NoError(err)
	s.registry = r
	s.verifier = jwttoken.NewVerifier(r, issuer)
}

func (s *ServiceSuite) SetupTest() {
	s.codes = storage.NewMemory[models.AuthorizationCode]()
	s.sessions = storage.NewMemory[models.Session]()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)
	s.service = s.newService(Config{})
}

func (s *ServiceSuite) newService(cfg Config) *Service {
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = 60 * time.Second
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s.registry, s.codes, s.sessions, jwttoken.NewSigner(issuer, time.Hour), logger, cfg, WithMetrics(s.metrics))
}

func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// login signs user1 in for clientID and returns the code from the redirect.
func (s *ServiceSuite) login(clientID, redirectURI string) (string, *models.LoginResult) {
	res, err := s.service.Login(s.at(s.now), models.LoginRequest{
		Username:    "user1",
		Password:    "password",
		ClientID:    clientID,
		RedirectURI: redirectURI,
		State:       "xyz",
	})
	s.Require().NoError(err)
	u, err := url.Parse(res.RedirectURL)
	s.Require().NoError(err)
	return u.Query().Get("code"), res
}

func (s *ServiceSuite) TestAuthorize() {
	s.Run("unknown client", func() {
		_, err := s.service.Authorize(s.at(s.now), models.AuthorizeRequest{ClientID: "nope", RedirectURI: app1Redirect})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidClient))
	})

	s.Run("redirect not registered", func() {
		_, err := s.service.Authorize(s.at(s.now), models.AuthorizeRequest{ClientID: "app-1", RedirectURI: app2Redirect})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRedirectURI))
	})

	s.Run("no session shows login form", func() {
		res, err := s.service.Authorize(s.at(s.now), models.AuthorizeRequest{
			ClientID:    "app-1",
			RedirectURI: app1Redirect,
			State:       "st@te with spaces",
		})
		s.Require().NoError(err)
		s.Require().NotNil(res.Login)
		s.Equal(models.LoginForm{ClientID: "app-1", RedirectURI: app1Redirect, State: "st@te with spaces"}, *res.Login)
		s.Empty(res.RedirectURL)
		s.Zero(s.codes.Len())
	})

	s.Run("live session gets a code", func() {
		_, login := s.login("app-1", app1Redirect)

		res, err := s.service.Authorize(s.at(s.now.Add(time.Minute)), models.AuthorizeRequest{
			ClientID:    "app-2",
			RedirectURI: app2Redirect,
			State:       "abc",
			SessionID:   login.Session.ID,
		})
		s.Require().NoError(err)
		s.Nil(res.Login)

		u, err := url.Parse(res.RedirectURL)
		s.Require().NoError(err)
		s.Equal("localhost:3031", u.Host)
		s.Equal("abc", u.Query().Get("state"))

		record, err := s.codes.Get(context.Background(), u.Query().Get("code"))
		s.Require().NoError(err)
		s.Equal("app-2", record.ClientID)
		s.Equal("1", record.User.ID)
	})

	s.Run("expired session shows login form", func() {
		_, login := s.login("app-1", app1Redirect)

		res, err := s.service.Authorize(s.at(s.now.Add(2*time.Hour)), models.AuthorizeRequest{
			ClientID:    "app-1",
			RedirectURI: app1Redirect,
			SessionID:   login.Session.ID,
		})
		s.Require().NoError(err)
		s.NotNil(res.Login)

		_, err = s.sessions.Get(context.Background(), login.Session.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestLogin() {
	s.Run("invalid credentials", func() {
		_, err := s.service.Login(s.at(s.now), models.LoginRequest{
			Username:    "user1",
			Password:    "wrong",
			ClientID:    "app-1",
			RedirectURI: app1Redirect,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredentials))
		s.Zero(s.codes.Len())
		s.Equal(float64(1), promtest.ToFloat64(s.metrics.LoginFailures))
	})

	s.Run("client is validated before credentials", func() {
		_, err := s.service.Login(s.at(s.now), models.LoginRequest{
			Username:    "user1",
			Password:    "password",
			ClientID:    "app-1",
			RedirectURI: "http://evil.example/callback",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidRedirectURI))
	})

	s.Run("success binds the code", func() {
		code, res := s.login("app-1", app1Redirect)
		s.Len(code, 43)

		u, err := url.Parse(res.RedirectURL)
		s.Require().NoError(err)
		s.Equal("xyz", u.Query().Get("state"))
		s.Equal("/callback", u.Path)

		record, err := s.codes.Get(context.Background(), code)
		s.Require().NoError(err)
		s.Equal(models.AuthorizationCode{
			Code:        code,
			ClientID:    "app-1",
			RedirectURI: app1Redirect,
			User:        models.BoundUser{ID: "1", Username: "user1", Name: "John Doe"},
			IssuedAt:    s.now,
			ExpiresAt:   s.now.Add(60 * time.Second),
		}, record)

		session, err := s.sessions.Get(context.Background(), res.Session.ID)
		s.Require().NoError(err)
		s.Equal("user1", session.User.Username)
		s.Equal(s.now.Add(time.Hour), session.ExpiresAt)
	})

	s.Run("codes are unique", func() {
		a, _ := s.login("app-1", app1Redirect)
		b, _ := s.login("app-1", app1Redirect)
		s.NotEqual(a, b)
	})
}

func (s *ServiceSuite) TestLogout() {
	_, res := s.login("app-1", app1Redirect)
	s.Require().NoError(s.service.Logout(context.Background(), res.Session.ID))
	_, err := s.sessions.Get(context.Background(), res.Session.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.service.Logout(context.Background(), ""))
}

func (s *ServiceSuite) tokenReq(code, clientID, secret string) models.TokenRequest {
	return models.TokenRequest{
		GrantType:    models.GrantAuthorizationCode,
		Code:         code,
		ClientID:     clientID,
		ClientSecret: secret,
		RedirectURI:  app1Redirect,
	}
}

func (s *ServiceSuite) TestTokenFailureOrder() {
	s.Run("unsupported grant type wins", func() {
		req := s.tokenReq("whatever", "nope", "bad")
		req.GrantType = "password"
		_, err := s.service.Token(s.at(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnsupportedGrantType))
	})

	s.Run("unknown code", func() {
		_, err := s.service.Token(s.at(s.now), s.tokenReq("missing", "app-1", "secret-1"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidGrant))
	})

	s.Run("empty code", func() {
		_, err := s.service.Token(s.at(s.now), s.tokenReq("", "app-1", "secret-1"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidGrant))
	})

	s.Run("expired code is purged", func() {
		code, _ := s.login("app-1", app1Redirect)
		_, err := s.service.Token(s.at(s.now.Add(61*time.Second)), s.tokenReq(code, "app-2", "bad"))
		s.ErrorIs(err, dErrors.New(dErrors.CodeInvalidGrant, "authorization code expired"))

		_, err = s.codes.Get(context.Background(), code)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("client mismatch keeps the code", func() {
		code, _ := s.login("app-1", app1Redirect)
		_, err := s.service.Token(s.at(s.now), s.tokenReq(code, "app-2", "secret-2"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidClient))

		_, err = s.codes.Get(context.Background(), code)
		s.NoError(err)
	})

	s.Run("wrong secret", func() {
		code, _ := s.login("app-1", app1Redirect)
		_, err := s.service.Token(s.at(s.now), s.tokenReq(code, "app-1", "secret-2"))
		s.True(dErrors.HasCode(err, dErrors.CodeClientAuthentication))
		// The client mismatch above shares the wire code.
		s.Equal(float64(2), promtest.ToFloat64(s.metrics.TokenFailures.WithLabelValues("invalid_client")))
	})
}

func (s *ServiceSuite) TestTokenCredentialsConflict() {
	s.Run("grant type is checked first", func() {
		req := s.tokenReq("whatever", "app-1", "secret-1")
		req.GrantType = "password"
		req.CredentialsConflict = true
		_, err := s.service.Token(s.at(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeUnsupportedGrantType))
	})

	s.Run("unknown code is checked before the conflict", func() {
		req := s.tokenReq("missing", "app-1", "secret-1")
		req.CredentialsConflict = true
		_, err := s.service.Token(s.at(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidGrant))
	})

	s.Run("conflict on a valid code is invalid_client and keeps the code", func() {
		code, _ := s.login("app-1", app1Redirect)
		req := s.tokenReq(code, "app-1", "secret-1")
		req.CredentialsConflict = true
		_, err := s.service.Token(s.at(s.now), req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidClient))
		s.Equal(400, dErrors.ToHTTPStatus(dErrors.CodeOf(err)))

		_, err = s.codes.Get(context.Background(), code)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestTokenExpiryBoundary() {
	code, _ := s.login("app-1", app1Redirect)
	_, err := s.service.Token(s.at(s.now.Add(60*time.Second+time.Nanosecond)), s.tokenReq(code, "app-1", "secret-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidGrant))

	code, _ = s.login("app-1", app1Redirect)
	_, err = s.service.Token(s.at(s.now.Add(60*time.Second)), s.tokenReq(code, "app-1", "secret-1"))
	s.NoError(err)
}

func (s *ServiceSuite) TestTokenSuccessPerClient() {
	for _, tc := range []struct{ clientID, redirect, secret string }{
		{"app-1", app1Redirect, "secret-1"},
		{"app-2", app2Redirect, "secret-2"},
	} {
		s.Run(tc.clientID, func() {
			code, _ := s.login(tc.clientID, tc.redirect)
			res, err := s.service.Token(s.at(s.now), s.tokenReq(code, tc.clientID, tc.secret))
			s.Require().NoError(err)
			s.Equal("Bearer", res.TokenType)
			s.Equal(3600, res.ExpiresIn)

			principal, err := s.verifier.Verify(s.at(s.now.Add(time.Minute)), res.AccessToken)
			s.Require().NoError(err)
			s.Equal(tc.clientID, principal.Audience)
			s.Equal("1", principal.Subject)
			s.Equal("user1", principal.Username)
			s.Equal("John Doe", principal.Name)
		})
	}
}

func (s *ServiceSuite) TestTokenSingleUse() {
	code, _ := s.login("app-1", app1Redirect)
	_, err := s.service.Token(s.at(s.now), s.tokenReq(code, "app-1", "secret-1"))
	s.Require().NoError(err)

	_, err = s.service.Token(s.at(s.now), s.tokenReq(code, "app-1", "secret-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidGrant))
}

func (s *ServiceSuite) TestTokenConcurrentRedemption() {
	code, _ := s.login("app-1", app1Redirect)

	const attempts = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		grants    int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Token(s.at(s.now), s.tokenReq(code, "app-1", "secret-1"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case dErrors.HasCode(err, dErrors.CodeInvalidGrant):
				grants++
			}
		}()
	}
	wg.Wait()
	s.Equal(1, successes)
	s.Equal(attempts-1, grants)
}

func (s *ServiceSuite) TestMissingClientSecret() {
	s.Run("accepted and counted by default", func() {
		code, _ := s.login("app-2", app2Redirect)
		_, err := s.service.Token(s.at(s.now), s.tokenReq(code, "app-2", ""))
		s.Require().NoError(err)
		s.Equal(float64(1), promtest.ToFloat64(s.metrics.MissingClientSecrets.WithLabelValues("app-2")))
	})

	s.Run("rejected when required", func() {
		strict := s.newService(Config{RequireClientSecret: true})
		code, _ := s.login("app-2", app2Redirect)
		_, err := strict.Token(s.at(s.now), s.tokenReq(code, "app-2", ""))
		s.True(dErrors.HasCode(err, dErrors.CodeClientAuthentication))
	})
}

type failingCodes struct {
	storage.Store[models.AuthorizationCode]
}

func (failingCodes) Put(context.Context, string, models.AuthorizationCode, time.Time) error {
	return sentinel.ErrUnavailable
}

func (failingCodes) Get(context.Context, string) (models.AuthorizationCode, error) {
	return models.AuthorizationCode{}, errors.Join(errors.New("dial tcp: refused"), sentinel.ErrUnavailable)
}

func (s *ServiceSuite) TestStoreFailuresAreInternal() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(s.registry, failingCodes{}, s.sessions, jwttoken.NewSigner(issuer, time.Hour), logger, Config{CodeTTL: time.Minute, SessionTTL: time.Hour})

	_, err := svc.Login(s.at(s.now), models.LoginRequest{
		Username: "user1", Password: "password", ClientID: "app-1", RedirectURI: app1Redirect,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	_, err = svc.Token(s.at(s.now), s.tokenReq("code", "app-1", "secret-1"))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestSweepExpired() {
	s.login("app-1", app1Redirect)
	s.login("app-2", app2Redirect)

	res, err := s.service.SweepExpired(context.Background(), s.now.Add(30*time.Second))
	s.Require().NoError(err)
	s.Equal(SweepResult{}, res)

	res, err = s.service.SweepExpired(context.Background(), s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal(SweepResult{Codes: 2}, res)
	s.Zero(s.codes.Len())
	s.Equal(2, s.sessions.Len())

	res, err = s.service.SweepExpired(context.Background(), s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Equal(SweepResult{Sessions: 2}, res)
	s.Equal(float64(2), promtest.ToFloat64(s.metrics.SweptRecords.WithLabelValues("codes")))
}

func (s *ServiceSuite) TestStartSweeperStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.service.StartSweeper(ctx, 10*time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop")
	}
}

package handler

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"idpweather/internal/auth/models"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/httputil"
	"idpweather/pkg/platform/middleware/ratelimit"
	request "idpweather/pkg/platform/middleware/request"
	"idpweather/pkg/requestcontext"
)

//go:embed templates/*.html
var templateFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templateFS, "templates/login.html"))

// SessionCookieName carries the IdP login session id.
const SessionCookieName = "idp_session"

const maxFormBytes = 1 << 16

// Service defines the interface for the authorization-code flow.
type Service interface {
	Authorize(ctx context.Context, req models.AuthorizeRequest) (*models.AuthorizeResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Token(ctx context.Context, req models.TokenRequest) (*models.TokenResult, error)
}

// Handler serves the identity provider endpoints.
type Handler struct {
	auth         Service
	logger       *slog.Logger
	limiter      *ratelimit.Limiter
	cookieSecure bool
}

// Option configures optional handler behavior.
type Option func(*Handler)

// WithRateLimiter throttles /login and /token per client IP.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) { h.cookieSecure = secure }
}

func New(auth Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{auth: auth, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the IdP routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/authorize", h.handleAuthorize)
	r.Get("/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(h.limiter, h.logger))
		r.Post("/login", h.handleLogin)
		r.Post("/token", h.handleToken)
	})
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	q := r.URL.Query()

	res, err := h.auth.Authorize(ctx, models.AuthorizeRequest{
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		ResponseType: q.Get("response_type"),
		State:        q.Get("state"),
		SessionID:    sessionID(r),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "authorize rejected",
			"client_id", q.Get("client_id"),
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	if res.Login != nil {
		h.renderLogin(w, r, http.StatusOK, *res.Login)
		return
	}
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid form body"))
		return
	}
	form := models.LoginForm{
		ClientID:    r.PostForm.Get("client_id"),
		RedirectURI: r.PostForm.Get("redirect_uri"),
		State:       r.PostForm.Get("state"),
	}

	res, err := h.auth.Login(ctx, models.LoginRequest{
		Username:    r.PostForm.Get("username"),
		Password:    r.PostForm.Get("password"),
		ClientID:    form.ClientID,
		RedirectURI: form.RedirectURI,
		State:       form.State,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
			form.Error = "Invalid credentials"
			h.renderLogin(w, r, http.StatusOK, form)
			return
		}
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "login failed",
				"error", err,
				"request_id", requestID,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    res.Session.ID,
		Path:     "/",
		Expires:  res.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Logout(ctx, sessionID(r)); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	req, err := decodeTokenRequest(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid token request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.Token(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "token exchange failed",
				"error", err,
				"request_id", requestID,
			)
		} else {
			h.logger.WarnContext(ctx, "token exchange rejected",
				"client_id", req.ClientID,
				"error", err,
				"request_id", requestID,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// decodeTokenRequest accepts form and JSON bodies. HTTP Basic credentials
// fill in client_id and client_secret. A contradiction with the body is
// flagged on the request and rejected by the service in check order.
func decodeTokenRequest(w http.ResponseWriter, r *http.Request) (models.TokenRequest, error) {
	var req models.TokenRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form body")
		}
		req = models.TokenRequest{
			GrantType:    r.PostForm.Get("grant_type"),
			Code:         r.PostForm.Get("code"),
			ClientID:     r.PostForm.Get("client_id"),
			ClientSecret: r.PostForm.Get("client_secret"),
			RedirectURI:  r.PostForm.Get("redirect_uri"),
		}
	}

	if id, secret, ok := r.BasicAuth(); ok {
		// RFC 6749 section 2.3.1: both parts are form-encoded before base64.
		var err error
		if id, err = url.QueryUnescape(id); err != nil {
			return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed client credentials")
		}
		if secret, err = url.QueryUnescape(secret); err != nil {
			return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed client credentials")
		}
		if req.ClientID != "" && req.ClientID != id {
			req.CredentialsConflict = true
			return req, nil
		}
		req.ClientID = id
		req.ClientSecret = secret
	}
	return req, nil
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, form models.LoginForm) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := loginTemplate.Execute(w, form); err != nil {
		ctx := r.Context()
		h.logger.ErrorContext(ctx, "failed to render login page",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

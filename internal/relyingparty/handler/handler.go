// Package handler serves the relying-party web apps: the weather UI client and
// the load-test client. Both share the login, callback and logout routes.
package handler

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"idpweather/internal/relyingparty/models"
	weather "idpweather/internal/weather/models"
	dErrors "idpweather/pkg/domain-errors"
	request "idpweather/pkg/platform/middleware/request"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Sessions is the browser-session side of the authorization-code flow.
type Sessions interface {
	BeginLogin(w http.ResponseWriter, r *http.Request) (string, error)
	CompleteLogin(w http.ResponseWriter, r *http.Request) error
	AccessToken(r *http.Request) (string, bool)
	Logout(w http.ResponseWriter, r *http.Request) error
}

// Weather fetches current conditions from the protected service.
type Weather interface {
	Current(ctx context.Context, token, city string) (*weather.CurrentWeather, error)
}

// LoadTester runs a burst of weather requests with one token.
type LoadTester interface {
	Requests() int
	Run(ctx context.Context, token, city string, report func(models.Result)) models.Summary
}

// Handler serves one relying-party app.
type Handler struct {
	sessions    Sessions
	weather     Weather
	loadTester  LoadTester
	clientID    string
	defaultCity string
	logger      *slog.Logger
}

// Option configures optional handler behavior.
type Option func(*Handler)

// WithLoadTester turns the app into the load-test client: the landing page
// offers a run and POST /test executes it.
func WithLoadTester(lt LoadTester) Option {
	return func(h *Handler) { h.loadTester = lt }
}

func New(sessions Sessions, weather Weather, clientID, defaultCity string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		sessions:    sessions,
		weather:     weather,
		clientID:    clientID,
		defaultCity: defaultCity,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the app routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/login", h.handleLogin)
	r.Get("/callback", h.handleCallback)
	r.Get("/logout", h.handleLogout)
	if h.loadTester != nil {
		r.Get("/", h.handleLoadTestHome)
		r.Post("/test", h.handleRunLoadTest)
		return
	}
	r.Get("/", h.handleHome)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.sessions.BeginLogin(w, r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to start login",
			"error", err,
			"request_id", request.GetRequestID(r.Context()),
		)
		writeText(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.CompleteLogin(w, r); err != nil {
		h.logger.WarnContext(ctx, "authorization callback failed",
			"client_id", h.clientID,
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		writeText(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.logger.ErrorContext(r.Context(), "logout failed",
			"error", err,
			"request_id", request.GetRequestID(r.Context()),
		)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type homePage struct {
	Title          string
	LoggedIn       bool
	City           string
	Weather        *weather.CurrentWeather
	Error          string
	Reauthenticate bool
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := homePage{Title: h.clientID + ": Weather Client"}

	token, ok := h.sessions.AccessToken(r)
	if !ok {
		h.render(w, r, "home", page)
		return
	}
	page.LoggedIn = true
	page.City = strings.TrimSpace(r.URL.Query().Get("city"))
	if page.City == "" {
		page.City = h.defaultCity
	}

	current, err := h.weather.Current(ctx, token, page.City)
	if err != nil {
		h.logger.WarnContext(ctx, "weather request failed",
			"city", page.City,
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		page.Error = userMessage(err)
		// An expired token is rejected with 403, so both statuses mean the
		// session has to be renewed.
		page.Reauthenticate = dErrors.HasCode(err, dErrors.CodeUnauthorized) ||
			dErrors.HasCode(err, dErrors.CodeForbidden)
	}
	page.Weather = current
	h.render(w, r, "home", page)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page",
			"page", name,
			"error", err,
			"request_id", request.GetRequestID(r.Context()),
		)
	}
}

// writeText answers browser-facing failures with a plain-text body.
func writeText(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	http.Error(w, userMessage(err), dErrors.ToHTTPStatus(code))
}

func userMessage(err error) string {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		return "internal error"
	}
	return dErrors.MessageOf(err)
}

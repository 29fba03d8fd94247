package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"idpweather/internal/weather/models"
	weatherservice "idpweather/internal/weather/service"
	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/httputil"
	"idpweather/pkg/platform/middleware/auth"
	request "idpweather/pkg/platform/middleware/request"
	"idpweather/pkg/requestcontext"
)

// Service defines the interface for weather lookups.
type Service interface {
	Current(ctx context.Context, q models.Query) (*models.CurrentWeather, error)
}

// Handler serves the bearer-protected weather API.
type Handler struct {
	weather  Service
	verifier auth.TokenVerifier
	logger   *slog.Logger
}

func New(weather Service, verifier auth.TokenVerifier, logger *slog.Logger) *Handler {
	return &Handler{weather: weather, verifier: verifier, logger: logger}
}

// UserData is the identity the presented token proves.
type UserData struct {
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Audience string `json:"aud"`
}

// Register registers the weather routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(h.verifier, h.logger))
		r.Get("/weather", h.handleWeather)
		r.Get("/user-data", h.handleUserData)
	})
}

func (h *Handler) handleWeather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	current, err := h.weather.Current(ctx, q)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "weather lookup failed",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, current)
}

func (h *Handler) handleUserData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := requestcontext.PrincipalFrom(ctx)
	if !ok {
		// Only reachable if RequireBearer is not in the chain.
		h.logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, UserData{
		Subject:  p.Subject,
		Username: p.Username,
		Name:     p.Name,
		Audience: p.Audience,
	})
}

// parseQuery reads city, or latitude and longitude. Coordinates are ignored
// when a city is given.
func parseQuery(r *http.Request) (models.Query, error) {
	v := r.URL.Query()
	q := models.Query{City: v.Get("city")}
	if weatherservice.CityName(q.City) != "" {
		return q, nil
	}

	latRaw, lonRaw := v.Get("latitude"), v.Get("longitude")
	if latRaw == "" || lonRaw == "" {
		return q, nil
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || lat < -90 || lat > 90 {
		return q, dErrors.New(dErrors.CodeBadRequest, "latitude must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil || lon < -180 || lon > 180 {
		return q, dErrors.New(dErrors.CodeBadRequest, "longitude must be a number between -180 and 180")
	}
	q.Coordinates = &models.Coordinates{Latitude: lat, Longitude: lon}
	return q, nil
}

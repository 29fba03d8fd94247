package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"idpweather/internal/platform/metrics"
	"idpweather/pkg/platform/httputil"
	"idpweather/pkg/platform/middleware/metadata"
	request "idpweather/pkg/platform/middleware/request"
	"idpweather/pkg/platform/middleware/requesttime"
)

type routerOptions struct {
	trustProxyHeaders bool
}

// RouterOption configures NewRouter.
type RouterOption func(*routerOptions)

// WithTrustedProxyHeaders takes the client IP from X-Forwarded-For and
// X-Real-IP instead of the peer address. Enable only behind a proxy that
// overwrites those headers.
func WithTrustedProxyHeaders(trust bool) RouterOption {
	return func(o *routerOptions) {
		o.trustProxyHeaders = trust
	}
}

// NewRouter returns a chi router carrying the shared middleware chain plus
// /healthz and /metrics. A zero timeout leaves handlers unbounded.
func NewRouter(logger *slog.Logger, reg *prometheus.Registry, timeout time.Duration, opts ...RouterOption) chi.Router {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	if o.trustProxyHeaders {
		r.Use(metadata.ProxiedClientMetadata)
	} else {
		r.Use(metadata.ClientMetadata)
	}
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	if timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}
	return r
}

package metadata

import (
	"net/http"
	"strings"

	"idpweather/pkg/requestcontext"
)

// ClientMetadata adds the connecting peer's IP to the context for rate
// limiting and logging. Forwarding headers are ignored. Apply it early in
// the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ClientIPFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ProxiedClientMetadata is ClientMetadata for deployments behind a reverse
// proxy that overwrites X-Forwarded-For and X-Real-IP. Clients can set those
// headers freely, so never use it on a directly exposed listener.
func ProxiedClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ForwardedClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest returns the host part of RemoteAddr.
func ClientIPFromRequest(r *http.Request) string {
	// RemoteAddr is "ip:port"; for IPv6 it is "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}

// ForwardedClientIP prefers the proxy-supplied client address and falls back
// to RemoteAddr.
func ForwardedClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return ClientIPFromRequest(r)
}

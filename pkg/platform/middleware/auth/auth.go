// Package auth gates resource endpoints on a verified bearer token.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/httputil"
	request "idpweather/pkg/platform/middleware/request"
	"idpweather/pkg/requestcontext"
)

// TokenVerifier checks a raw bearer token and returns the proven identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (requestcontext.Principal, error)
}

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// RequireBearer rejects requests without a bearer token with 401 and requests
// whose token fails verification with 403.
func RequireBearer(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			principal, err := verifier.Verify(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "forbidden - token rejected",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeForbidden, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, principal)))
		})
	}
}

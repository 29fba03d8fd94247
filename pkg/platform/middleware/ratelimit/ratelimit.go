// Package ratelimit throttles credential-bearing endpoints per client IP.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	dErrors "idpweather/pkg/domain-errors"
	"idpweather/pkg/platform/httputil"
	"idpweather/pkg/requestcontext"
)

// Limiter keeps one token bucket per key. Idle buckets are dropped by Prune.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New builds a limiter allowing perSecond sustained requests with the given burst.
func New(perSecond float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

// Allow reports whether a request for key may proceed at now.
func (l *Limiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Prune removes buckets not seen since before cutoff and returns how many were removed.
func (l *Limiter) Prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// StartPruner drops buckets idle for longer than idle, every interval, until
// ctx is cancelled.
func (l *Limiter) StartPruner(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.Prune(now.Add(-idle))
		case <-ctx.Done():
			return
		}
	}
}

// Middleware rejects requests over the per-IP limit with 429.
// A nil limiter disables throttling.
func Middleware(l *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if !l.Allow(ip, requestcontext.Now(ctx)) {
				logger.WarnContext(ctx, "rate limit exceeded",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(1))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

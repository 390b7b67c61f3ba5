package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/tasteapp/taste-index/internal/http/response"
	"github.com/tasteapp/taste-index/internal/ratelimit"
)

// RateLimiter is the per-client limiter used by the API.
type RateLimiter = ratelimit.KeyedRateLimiter

// unlimitedPaths are probed by infrastructure and never rate limited.
var unlimitedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RateLimitMiddleware limits requests per client IP and answers 429 with a
// TOO_MANY_REQUESTS envelope when a client runs out of tokens.
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unlimitedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := getClientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "1")
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the client address used as the rate limit key:
// the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr without
// its port.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

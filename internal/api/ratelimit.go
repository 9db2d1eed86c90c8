package api

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/ablbsk/bookworm-api/internal/auth"
	"github.com/ablbsk/bookworm-api/internal/http/response"
	"github.com/ablbsk/bookworm-api/internal/ratelimit"
)

// RateLimitMiddleware limits requests per account, or per client IP for
// anonymous requests. Returns 429 Too Many Requests when the limit is
// exceeded. It must run after authMiddleware.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)

			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
				)
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if accountID := auth.AccountIDFrom(r.Context()); accountID != "" {
		return "account:" + accountID
	}
	return "ip:" + clientIP(r)
}

// clientIP strips the port from RemoteAddr. Proxy headers are already folded
// into RemoteAddr by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package ratelimit

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/avbelov/url-shortener/pkg/response"
	"github.com/go-chi/render"
)

// Middleware rejects requests that exceed the limiter's window with a 429.
// If the counter store is unreachable the request is let through: degraded
// limiting beats refusing all traffic.
func Middleware(limiter *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := clientIP(r)

			allowed, err := limiter.Allow(r.Context(), clientKey)
			if err != nil {
				logger.Error("rate limiter unavailable, allowing request",
					slog.String("client", clientKey),
					slog.Any("err", err),
				)

				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.Warn("rate limit exceeded", slog.String("client", clientKey))

				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.RateLimitExceededResponse)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// middleware.RealIP has already rewritten RemoteAddr when the request
	// came through a proxy.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/web/auth"
	"github.com/mcrud/mcrud/internal/web/middleware"
	"github.com/mcrud/mcrud/internal/web/response"
)

// KeyFunc picks the budget a request is charged to
type KeyFunc func(r *http.Request) string

// ClientKey charges the token subject when the request is authenticated and
// the client IP otherwise
func ClientKey(r *http.Request) string {
	if subject := auth.Subject(r.Context()); subject != "" {
		return "sub:" + subject
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// Middleware rejects requests over budget with 429 and reports the budget in
// X-RateLimit-* headers. A failing limiter lets the request through.
func Middleware(l Limiter, key KeyFunc, logger *zap.Logger) middleware.Middleware {
	if key == nil {
		key = ClientKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := l.Allow(r.Context(), key(r))
			if err != nil {
				logger.Warn("rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				h.Set("Retry-After", strconv.Itoa(retryAfter(time.Until(info.ResetAt))))
				response.RenderError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter rounds up to whole seconds, at least one
func retryAfter(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

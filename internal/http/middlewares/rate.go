package middlewares

import (
	"net/http"
	"strconv"

	httperrors "github.com/dropDatabas3/recovery/internal/http/errors"
	"github.com/dropDatabas3/recovery/internal/http/helpers"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
	"github.com/dropDatabas3/recovery/internal/rate"
)

// RateKeyFunc define la clave de rate limiting de un request.
type RateKeyFunc func(r *http.Request) string

// IPRateKey limita por IP + método + patrón de ruta. Se usa el patrón y no el
// path: en /password/reset/{id}/{code} cada código probado es un path distinto.
func IPRateKey(r *http.Request) string {
	return helpers.ClientIP(r) + "|" + r.Method + " " + routePattern(r)
}

// RateLimitConfig configura WithRateLimit.
type RateLimitConfig struct {
	Limiter rate.Limiter
	KeyFunc RateKeyFunc
}

// WithRateLimit corta con 429 cuando la clave excede la ventana. Si el
// limiter falla dejamos pasar: no queremos bloquear resets por un redis caído.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPRateKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter failed", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				if res.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
				}
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middlewares

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/recovery/internal/http/helpers"
)

// SessionConfig configura la cookie de sesión anónima.
type SessionConfig struct {
	CookieName string
	Domain     string
	SameSite   string
	Secure     bool
	TTL        time.Duration
}

// WithSession garantiza que cada request tenga un id de sesión. Reusa el de
// la cookie si es un UUID válido; si no, emite uno nuevo.
func WithSession(cfg SessionConfig) Middleware {
	if cfg.CookieName == "" {
		cfg.CookieName = "sid"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if ck, err := r.Cookie(cfg.CookieName); err == nil {
				if _, perr := uuid.Parse(ck.Value); perr == nil {
					sid = ck.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, helpers.BuildCookie(cfg.CookieName, sid, cfg.Domain, cfg.SameSite, cfg.Secure, cfg.TTL))
			}
			next.ServeHTTP(w, r.WithContext(setSessionID(r.Context(), sid)))
		})
	}
}

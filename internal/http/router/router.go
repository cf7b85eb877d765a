// Package router arma el árbol de rutas de la API de recuperación.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/recovery/internal/http/controllers"
	httperrors "github.com/dropDatabas3/recovery/internal/http/errors"
	mw "github.com/dropDatabas3/recovery/internal/http/middlewares"
	"github.com/dropDatabas3/recovery/internal/rate"
)

// Deps son las piezas ya construidas que el router conecta.
type Deps struct {
	Captcha  *controllers.CaptchaController
	Password *controllers.PasswordController
	Health   *controllers.HealthController

	Session mw.SessionConfig

	// ResetLimiter es opcional; nil deshabilita el rate limit de /password/reset.
	ResetLimiter rate.Limiter

	// Metrics expone /metrics cuando no es nil.
	Metrics prometheus.Gatherer

	// CORSOrigins habilita CORS con credenciales para el frontend del CMS.
	CORSOrigins []string
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithSecurityHeaders(),
	)

	// CORS con credenciales: la cookie de sesión tiene que viajar desde el frontend.
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Health)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithSession(d.Session))

		if d.Captcha != nil {
			r.Post("/captcha/verify", d.Captcha.Verify)
		}
		if d.Password != nil {
			r.Group(func(r chi.Router) {
				r.Use(mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.ResetLimiter}))
				r.Post("/password/reset", d.Password.RequestReset)
				r.Get("/password/reset/{id}/{code}", d.Password.ConfirmReset)
			})
		}
	})

	return r
}

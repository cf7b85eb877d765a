// Package app conecta config, storage, mail, captcha y HTTP en un servidor listo.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/recovery/internal/cache"
	"github.com/dropDatabas3/recovery/internal/captcha"
	"github.com/dropDatabas3/recovery/internal/config"
	"github.com/dropDatabas3/recovery/internal/email"
	"github.com/dropDatabas3/recovery/internal/http/controllers"
	mw "github.com/dropDatabas3/recovery/internal/http/middlewares"
	"github.com/dropDatabas3/recovery/internal/http/router"
	"github.com/dropDatabas3/recovery/internal/i18n"
	"github.com/dropDatabas3/recovery/internal/metrics"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
	"github.com/dropDatabas3/recovery/internal/rate"
	"github.com/dropDatabas3/recovery/internal/recovery"
	"github.com/dropDatabas3/recovery/internal/security/password"
	"github.com/dropDatabas3/recovery/internal/store"
	"github.com/dropDatabas3/recovery/internal/store/memory"
	"github.com/dropDatabas3/recovery/internal/store/sqlstore"
)

// Store es lo que el servicio necesita del repositorio (memory o SQL).
type Store interface {
	recovery.UserRepository
	recovery.ThrottleService
	Create(ctx context.Context, nu store.NewUser) (store.User, error)
}

// App es la aplicación cableada.
type App struct {
	Config  *config.Config
	Handler http.Handler
	Service *recovery.Service
	Store   Store

	closers []func() error
}

// New construye todas las dependencias a partir de cfg.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	log := logger.From(ctx).With(logger.Component("app"))
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// 1. Storage
	params := password.Default
	st, err := a.openStore(ctx, cfg, params)
	if err != nil {
		return nil, err
	}
	a.Store = st

	// 2. Cache + rate limiter (comparten cliente redis)
	kv, limiter, err := a.openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 3. Mail
	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 4. Servicio
	policy := password.Policy{
		MinLength:    cfg.Security.PasswordPolicy.MinLength,
		RequireUpper: cfg.Security.PasswordPolicy.RequireUpper,
		RequireLower: cfg.Security.PasswordPolicy.RequireLower,
		RequireDigit: cfg.Security.PasswordPolicy.RequireDigit,
	}
	a.Service = recovery.NewService(recovery.Deps{
		Users:     st,
		Throttles: st,
		Notifier:  email.NewNotifier(transport),
		Settings: recovery.Settings{
			CMSName:        cfg.Recovery.CMSName,
			From:           email.Recipient{Address: cfg.Mail.From.Address, Name: cfg.Mail.From.Name},
			ResetURL:       cfg.Recovery.ResetURL,
			PasswordLength: cfg.Recovery.PasswordLength,
		},
		Translator: i18n.New(cfg.Recovery.Locale),
		Passwords:  password.NewGenerator(cfg.Recovery.PasswordLength, policy),
	})

	// 5. Captcha
	var provider captcha.Provider = captcha.NewRecaptchaProvider(cfg.Captcha.SecretKey, cfg.Captcha.VerifyURL, cfg.Captcha.Timeout)
	if cfg.Captcha.SkipVerify {
		log.Warn("captcha verification is disabled")
		provider = captcha.SkipProvider{}
	}
	verifier := captcha.NewVerifier(provider, captcha.Options{
		MinScore:         cfg.Captcha.MinScore,
		ExpectedHostname: cfg.Captcha.ExpectedHostname,
		ExpectedAction:   cfg.Captcha.ExpectedAction,
	}, time.Now)
	passes := captcha.NewPassStore(kv)

	// 6. HTTP
	checks := map[string]controllers.Pinger{"cache": kv}
	if p, ok := st.(controllers.Pinger); ok {
		checks["storage"] = p
	}
	deps := router.Deps{
		Captcha:  controllers.NewCaptchaController(verifier, passes, cfg.Captcha.Window),
		Password: controllers.NewPasswordController(a.Service, passes, cfg.Captcha.Window, time.Now),
		Health:   controllers.NewHealthController(checks),
		Session: mw.SessionConfig{
			CookieName: cfg.Server.SessionCookie,
			SameSite:   "lax",
			Secure:     cfg.Server.SecureCookies,
		},
		ResetLimiter: limiter,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}
	if cfg.Server.MetricsEnabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return nil, fmt.Errorf("app: register metrics: %w", err)
		}
		deps.Metrics = prometheus.DefaultGatherer
	}
	a.Handler = router.New(deps)

	log.Info("app wired",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.String("mail", cfg.Mail.Driver),
		logger.Bool("rate_limit", limiter != nil),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, params password.Params) (Store, error) {
	var st Store
	switch cfg.Storage.Driver {
	case "pgx", "mysql":
		s, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:          cfg.Storage.Driver,
			DSN:             cfg.Storage.DSN,
			MaxOpenConns:    cfg.Storage.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
			CodeTTL:         cfg.Recovery.CodeTTL,
			Params:          params,
		})
		if err != nil {
			return nil, fmt.Errorf("app: open storage: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		st = s
	default:
		st = memory.New(memory.Options{CodeTTL: cfg.Recovery.CodeTTL, Params: params})
		if err := Seed(ctx, st, cfg); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (a *App) openCache(ctx context.Context, cfg *config.Config) (cache.Client, rate.Limiter, error) {
	ccfg := cache.Config{Kind: cfg.Cache.Kind, Prefix: "recovery", DefaultTTL: cfg.Cache.Memory.DefaultTTL}
	if cfg.Cache.Kind == "redis" {
		ccfg.Addr = cfg.Cache.Redis.Addr
		ccfg.Password = cfg.Cache.Redis.Password
		ccfg.DB = cfg.Cache.Redis.DB
		if p := strings.TrimRight(cfg.Cache.Redis.Prefix, ":"); p != "" {
			ccfg.Prefix = p
		}
	}
	kv, err := cache.New(ctx, ccfg)
	if err != nil {
		return nil, nil, fmt.Errorf("app: open cache: %w", err)
	}
	a.closers = append(a.closers, kv.Close)

	if !cfg.Rate.Enabled {
		return kv, nil, nil
	}
	// El limiter comparte la conexión redis del cache.
	if rdb, ok := cache.RedisClient(kv); ok {
		return kv, rate.NewRedisLimiter(rdb, ccfg.Prefix+":rl:", cfg.Rate.Reset.Limit, cfg.Rate.Reset.Window), nil
	}
	return kv, rate.NewMemoryLimiter("rl:", cfg.Rate.Reset.Limit, cfg.Rate.Reset.Window), nil
}

func newTransport(ctx context.Context, cfg *config.Config) (email.Transport, error) {
	renderer := email.NewLiquidRenderer(cfg.Mail.TemplatesDir)
	switch cfg.Mail.Driver {
	case "smtp":
		return email.NewSMTPTransport(email.SMTPConfig{
			Host:               cfg.Mail.SMTP.Host,
			Port:               cfg.Mail.SMTP.Port,
			Username:           cfg.Mail.SMTP.Username,
			Password:           cfg.Mail.SMTP.Password,
			TLSMode:            cfg.Mail.SMTP.TLS,
			InsecureSkipVerify: cfg.Mail.SMTP.InsecureSkipVerify,
		}, renderer), nil
	case "ses":
		t, err := email.NewSESTransport(ctx, email.SESConfig{
			Region:    cfg.Mail.SES.Region,
			AccessKey: cfg.Mail.SES.AccessKey,
			SecretKey: cfg.Mail.SES.SecretKey,
		}, renderer)
		if err != nil {
			return nil, fmt.Errorf("app: ses transport: %w", err)
		}
		return t, nil
	default:
		return email.NewPretendTransport(), nil
	}
}

// Seed crea el usuario de cfg.Storage.Seed si está configurado y no existe.
func Seed(ctx context.Context, st Store, cfg *config.Config) error {
	seed := cfg.Storage.Seed
	if strings.TrimSpace(seed.Email) == "" {
		return nil
	}
	if _, err := st.FindByLogin(ctx, store.NormalizeLogin(seed.Email)); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("app: seed lookup: %w", err)
	}
	if seed.Password == "" {
		return errors.New("app: storage.seed.password is required when storage.seed.email is set")
	}
	u, err := st.Create(ctx, store.NewUser{
		Email:     seed.Email,
		FirstName: seed.FirstName,
		LastName:  seed.LastName,
		Password:  seed.Password,
	})
	if err != nil {
		return fmt.Errorf("app: seed user: %w", err)
	}
	logger.From(ctx).Info("seed user created", logger.UserID(u.ID), logger.Email(u.Email))
	return nil
}

// Close libera conexiones en orden inverso de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run sirve HTTP hasta que ctx se cancele y luego hace shutdown ordenado.
func (a *App) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("server"))
	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler,
		ReadTimeout:       a.Config.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.Config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

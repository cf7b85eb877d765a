package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr           string        `yaml:"addr"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		SessionCookie  string        `yaml:"session_cookie"`
		SecureCookies  bool          `yaml:"secure_cookies"`
		MetricsEnabled bool          `yaml:"metrics_enabled"`
		CORSOrigins    []string      `yaml:"cors_origins"`
	} `yaml:"server"`

	Storage struct {
		Driver          string        `yaml:"driver"` // memory | pgx | mysql
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		// Seed es un usuario inicial opcional (memory al arrancar, SQL via migrate seed).
		Seed struct {
			Email     string `yaml:"email"`
			FirstName string `yaml:"first_name"`
			LastName  string `yaml:"last_name"`
			Password  string `yaml:"password"`
		} `yaml:"seed"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL time.Duration `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Reset   struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"reset"`
	} `yaml:"rate"`

	Mail struct {
		Driver       string `yaml:"driver"` // smtp | ses | pretend
		TemplatesDir string `yaml:"templates_dir"`
		From         struct {
			Address string `yaml:"address"`
			Name    string `yaml:"name"`
		} `yaml:"from"`
		SMTP struct {
			Host               string `yaml:"host"`
			Port               int    `yaml:"port"`
			Username           string `yaml:"username"`
			Password           string `yaml:"password"`
			TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
			InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
		} `yaml:"smtp"`
		SES struct {
			Region    string `yaml:"region"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"ses"`
	} `yaml:"mail"`

	Captcha struct {
		SecretKey        string        `yaml:"secret_key"`
		VerifyURL        string        `yaml:"verify_url"`
		MinScore         float64       `yaml:"min_score"`
		Timeout          time.Duration `yaml:"timeout"`
		Window           time.Duration `yaml:"window"` // cuánto vale un captcha aprobado
		ExpectedHostname string        `yaml:"expected_hostname"`
		ExpectedAction   string        `yaml:"expected_action"`
		SkipVerify       bool          `yaml:"skip_verify"` // sólo dev
	} `yaml:"captcha"`

	Recovery struct {
		CMSName        string        `yaml:"cms_name"`
		ResetURL       string        `yaml:"reset_url"` // ej: https://cms.example.com/password/reset/{id}/{code}
		Locale         string        `yaml:"locale"`
		PasswordLength int           `yaml:"password_length"`
		CodeTTL        time.Duration `yaml:"code_ttl"`
	} `yaml:"recovery"`

	Security struct {
		PasswordPolicy struct {
			MinLength    int  `yaml:"min_length"`
			RequireUpper bool `yaml:"require_upper"`
			RequireLower bool `yaml:"require_lower"`
			RequireDigit bool `yaml:"require_digit"`
		} `yaml:"password_policy"`
	} `yaml:"security"`
}

// Load lee el YAML en path, aplica defaults y overrides de entorno y valida.
// Un path vacío arranca solo con defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", filepath.Base(path), err)
		}
	}

	c.applyDefaults()

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.SessionCookie == "" {
		c.Server.SessionCookie = "sid"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == 0 {
		c.Cache.Memory.DefaultTTL = 2 * time.Minute
	}
	if c.Rate.Reset.Limit == 0 {
		c.Rate.Reset.Limit = 5
	}
	if c.Rate.Reset.Window == 0 {
		c.Rate.Reset.Window = 10 * time.Minute
	}
	if c.Mail.Driver == "" {
		c.Mail.Driver = "pretend"
	}
	if c.Mail.SMTP.Port == 0 {
		c.Mail.SMTP.Port = 587
	}
	if c.Mail.SMTP.TLS == "" {
		c.Mail.SMTP.TLS = "auto"
	}
	if c.Mail.SES.Region == "" {
		c.Mail.SES.Region = "us-east-1"
	}
	if c.Captcha.VerifyURL == "" {
		c.Captcha.VerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	}
	if c.Captcha.MinScore == 0 {
		c.Captcha.MinScore = 0.5
	}
	if c.Captcha.Timeout == 0 {
		c.Captcha.Timeout = 10 * time.Second
	}
	if c.Captcha.Window == 0 {
		c.Captcha.Window = 5 * time.Minute
	}
	if c.Recovery.CMSName == "" {
		c.Recovery.CMSName = "Larapress"
	}
	if c.Recovery.ResetURL == "" {
		c.Recovery.ResetURL = "http://localhost:8080/password/reset/{id}/{code}"
	}
	if c.Recovery.Locale == "" {
		c.Recovery.Locale = "en"
	}
	if c.Recovery.PasswordLength == 0 {
		c.Recovery.PasswordLength = 16
	}
	if c.Recovery.CodeTTL == 0 {
		c.Recovery.CodeTTL = 60 * time.Minute
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 10
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno
// y fuerza seguridad en prod.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvBool("SERVER_SECURE_COOKIES"); ok {
		c.Server.SecureCookies = v
	}
	if v, ok := getEnvStr("CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, o)
			}
		}
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("DATABASE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("DATABASE_MAX_OPEN_CONNS"); ok {
		c.Storage.MaxOpenConns = v
	}
	if v, ok := getEnvStr("SEED_EMAIL"); ok {
		c.Storage.Seed.Email = v
	}
	if v, ok := getEnvStr("SEED_PASSWORD"); ok {
		c.Storage.Seed.Password = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_RESET_LIMIT"); ok {
		c.Rate.Reset.Limit = v
	}
	if v, ok := getEnvDur("RATE_RESET_WINDOW"); ok {
		c.Rate.Reset.Window = v
	}

	// MAIL
	if v, ok := getEnvStr("MAIL_DRIVER"); ok {
		c.Mail.Driver = v
	}
	if v, ok := getEnvStr("MAIL_FROM_ADDRESS"); ok {
		c.Mail.From.Address = v
	}
	if v, ok := getEnvStr("MAIL_FROM_NAME"); ok {
		c.Mail.From.Name = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.Mail.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.Mail.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.Mail.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.Mail.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.Mail.SMTP.TLS = v
	}
	if v, ok := getEnvStr("SES_REGION"); ok {
		c.Mail.SES.Region = v
	}
	if v, ok := getEnvStr("SES_ACCESS_KEY"); ok {
		c.Mail.SES.AccessKey = v
	}
	if v, ok := getEnvStr("SES_SECRET_KEY"); ok {
		c.Mail.SES.SecretKey = v
	}

	// CAPTCHA
	if v, ok := getEnvStr("CAPTCHA_SECRET_KEY"); ok {
		c.Captcha.SecretKey = v
	}
	if v, ok := getEnvStr("CAPTCHA_VERIFY_URL"); ok {
		c.Captcha.VerifyURL = v
	}
	if v, ok := getEnvDur("CAPTCHA_WINDOW"); ok {
		c.Captcha.Window = v
	}
	if v, ok := getEnvBool("CAPTCHA_SKIP_VERIFY"); ok {
		c.Captcha.SkipVerify = v
	}

	// RECOVERY
	if v, ok := getEnvStr("CMS_NAME"); ok {
		c.Recovery.CMSName = v
	}
	if v, ok := getEnvStr("RESET_URL"); ok {
		c.Recovery.ResetURL = v
	}
	if v, ok := getEnvStr("RECOVERY_LOCALE"); ok {
		c.Recovery.Locale = v
	}

	// Guardia dura: en prod NUNCA salteamos el captcha.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Captcha.SkipVerify = false
		c.Server.SecureCookies = true
	}
}

var (
	ErrInvalidStorageDriver = errors.New("config: storage.driver must be memory|pgx|mysql")
	ErrInvalidCacheKind     = errors.New("config: cache.kind must be memory|redis")
	ErrInvalidMailDriver    = errors.New("config: mail.driver must be smtp|ses|pretend")
)

// Validate chequea combinaciones que no tienen sentido antes de arrancar.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "pgx", "mysql":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("config: storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return ErrInvalidStorageDriver
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return errors.New("config: cache.redis.addr is required when cache.kind=redis")
		}
	default:
		return ErrInvalidCacheKind
	}

	switch c.Mail.Driver {
	case "pretend":
		if strings.EqualFold(c.App.Env, "prod") {
			return errors.New("config: mail.driver=pretend is not allowed in prod")
		}
	case "smtp":
		if strings.TrimSpace(c.Mail.SMTP.Host) == "" {
			return errors.New("config: mail.smtp.host is required when mail.driver=smtp")
		}
	case "ses":
	default:
		return ErrInvalidMailDriver
	}

	if !strings.Contains(c.Recovery.ResetURL, "{id}") || !strings.Contains(c.Recovery.ResetURL, "{code}") {
		return errors.New("config: recovery.reset_url must contain {id} and {code}")
	}
	if c.Recovery.PasswordLength < c.Security.PasswordPolicy.MinLength {
		return fmt.Errorf("config: recovery.password_length (%d) is below password_policy.min_length (%d)",
			c.Recovery.PasswordLength, c.Security.PasswordPolicy.MinLength)
	}
	if !c.Captcha.SkipVerify && strings.TrimSpace(c.Captcha.SecretKey) == "" && strings.EqualFold(c.App.Env, "prod") {
		return errors.New("config: captcha.secret_key is required in prod")
	}
	return nil
}

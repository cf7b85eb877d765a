package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "pretend", cfg.Mail.Driver)
	assert.Equal(t, 16, cfg.Recovery.PasswordLength)
	assert.Equal(t, 5*time.Minute, cfg.Captcha.Window)
	assert.Equal(t, "sid", cfg.Server.SessionCookie)
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	p := writeYAML(t, `
app:
  app_env: dev
recovery:
  cms_name: Acme CMS
  reset_url: https://cms.acme.test/password/reset/{id}/{code}
captcha:
  window: 90s
mail:
  driver: smtp
  smtp:
    host: smtp.acme.test
`)
	t.Setenv("CMS_NAME", "Override CMS")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("CORS_ORIGINS", "https://cms.acme.test, http://localhost:5173")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "Override CMS", cfg.Recovery.CMSName)
	assert.Equal(t, 90*time.Second, cfg.Captcha.Window)
	assert.Equal(t, 2525, cfg.Mail.SMTP.Port)
	assert.Equal(t, "auto", cfg.Mail.SMTP.TLS)
	assert.Equal(t, []string{"https://cms.acme.test", "http://localhost:5173"}, cfg.Server.CORSOrigins)
}

func TestLoad_ProdForcesCaptcha(t *testing.T) {
	p := writeYAML(t, `
app:
  app_env: prod
mail:
  driver: ses
captcha:
  secret_key: s3cr3t
  skip_verify: true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.False(t, cfg.Captcha.SkipVerify)
	assert.True(t, cfg.Server.SecureCookies)
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]string{
		"bad storage":     "storage:\n  driver: mongo\n",
		"dsn required":    "storage:\n  driver: pgx\n",
		"bad cache":       "cache:\n  kind: memcached\n",
		"redis addr":      "cache:\n  kind: redis\n",
		"smtp host":       "mail:\n  driver: smtp\n",
		"reset url":       "recovery:\n  reset_url: https://x.test/reset\n",
		"short password":  "recovery:\n  password_length: 8\n",
		"pretend in prod": "app:\n  app_env: prod\ncaptcha:\n  secret_key: k\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", cfg.Storage.Seed.Email)
	assert.True(t, cfg.Captcha.SkipVerify)
	assert.Equal(t, 10*time.Minute, cfg.Rate.Reset.Window)
}

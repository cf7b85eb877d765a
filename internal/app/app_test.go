package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/recovery/internal/config"
	"github.com/dropDatabas3/recovery/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Captcha.SkipVerify = true
	cfg.Mail.From.Address = "noreply@cms.test"
	cfg.Storage.Seed.Email = "admin@cms.test"
	cfg.Storage.Seed.FirstName = "Ada"
	cfg.Storage.Seed.Password = "SeedPassw0rd123"
	return cfg
}

func TestNew_MemoryStackServesResetFlow(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	u, err := a.Store.FindByLogin(context.Background(), "admin@cms.test")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FirstName)

	srv := httptest.NewServer(a.Handler)
	t.Cleanup(srv.Close)
	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	resp, err := client.Post(srv.URL+"/captcha/verify", "application/json", bytes.NewBufferString(`{"token":"any"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Post(srv.URL+"/password/reset", "application/json", bytes.NewBufferString(`{"email":"admin@cms.test"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestNew_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.Kind = "redis"
	cfg.Cache.Redis.Addr = mr.Addr()
	cfg.Rate.Enabled = true

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// el limiter usa la misma conexión redis que el cache
	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/password/reset", strings.NewReader(`{"email":"admin@cms.test"}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	var limiterKeys int
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "recovery:rl:") {
			limiterKeys++
		}
	}
	assert.Equal(t, 1, limiterKeys)
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Kind = "redis"
	cfg.Cache.Redis.Addr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSeed_IsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, Seed(context.Background(), a.Store, cfg))
	_, err = a.Store.FindByLogin(context.Background(), store.NormalizeLogin("ADMIN@cms.test"))
	assert.NoError(t, err)
}

func TestSeed_RequiresPassword(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Seed.Email = "other@cms.test"
	cfg.Storage.Seed.Password = ""
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/recovery/internal/cache"
	"github.com/dropDatabas3/recovery/internal/captcha"
	"github.com/dropDatabas3/recovery/internal/email"
	"github.com/dropDatabas3/recovery/internal/http/controllers"
	"github.com/dropDatabas3/recovery/internal/http/dto"
	mw "github.com/dropDatabas3/recovery/internal/http/middlewares"
	"github.com/dropDatabas3/recovery/internal/i18n"
	"github.com/dropDatabas3/recovery/internal/observability/logger"
	"github.com/dropDatabas3/recovery/internal/rate"
	"github.com/dropDatabas3/recovery/internal/recovery"
	"github.com/dropDatabas3/recovery/internal/security/password"
	"github.com/dropDatabas3/recovery/internal/store"
	"github.com/dropDatabas3/recovery/internal/store/memory"
)

// tokenProvider aprueba sólo el token "good".
type tokenProvider struct{}

func (tokenProvider) Check(_ context.Context, token, _ string) (captcha.Response, error) {
	return captcha.Response{Success: token == "good", Score: 0.9}, nil
}

type env struct {
	srv    *httptest.Server
	client *http.Client
	mail   *email.PretendTransport
	users  *memory.Store
	user   store.User
}

func newEnv(t *testing.T, limiter rate.Limiter) *env {
	t.Helper()
	users := memory.New(memory.Options{
		CodeTTL: time.Hour,
		Params:  password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32},
	})
	u, err := users.Create(context.Background(), store.NewUser{
		Email: "jane@cms.test", FirstName: "Jane", LastName: "Doe", Password: "OldPassw0rd123",
	})
	require.NoError(t, err)

	mail := email.NewPretendTransport()
	svc := recovery.NewService(recovery.Deps{
		Users:     users,
		Throttles: users,
		Notifier:  email.NewNotifier(mail),
		Settings: recovery.Settings{
			CMSName:        "Larapress",
			From:           email.Recipient{Address: "noreply@cms.test", Name: "Larapress"},
			ResetURL:       "https://cms.test/password/reset/{id}/{code}",
			PasswordLength: 16,
		},
		Translator: i18n.New("en"),
	})

	passes := captcha.NewPassStore(cache.NewMemory("test:", time.Minute))
	verifier := captcha.NewVerifier(tokenProvider{}, captcha.Options{MinScore: 0.5}, time.Now)

	h := New(Deps{
		Captcha:      controllers.NewCaptchaController(verifier, passes, 5*time.Minute),
		Password:     controllers.NewPasswordController(svc, passes, 5*time.Minute, time.Now),
		Health:       controllers.NewHealthController(nil),
		Session:      mw.SessionConfig{CookieName: "sid"},
		ResetLimiter: limiter,
		Metrics:      prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &env{srv: srv, client: &http.Client{Jar: jar}, mail: mail, users: users, user: u}
}

func (e *env) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := e.client.Post(e.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *env) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCaptchaVerify_ResultShape(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.postJSON(t, "/captcha/verify", dto.CaptchaVerifyRequest{Token: "bad"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "failed", decode[dto.CaptchaVerifyResponse](t, resp).Result)

	resp = e.postJSON(t, "/captcha/verify", dto.CaptchaVerifyRequest{Token: "good"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", decode[dto.CaptchaVerifyResponse](t, resp).Result)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestPasswordReset_RequiresCaptcha(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.postJSON(t, "/password/reset", dto.ResetRequest{Email: "jane@cms.test"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "CAPTCHA_REQUIRED", decode[dto.ErrorResponse](t, resp).Code)
	assert.Empty(t, e.mail.Sent())

	// un captcha fallido no habilita nada
	e.postJSON(t, "/captcha/verify", dto.CaptchaVerifyRequest{Token: "bad"})
	resp = e.postJSON(t, "/password/reset", dto.ResetRequest{Email: "jane@cms.test"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPasswordReset_FullFlow(t *testing.T) {
	e := newEnv(t, nil)

	e.postJSON(t, "/captcha/verify", dto.CaptchaVerifyRequest{Token: "good"})
	resp := e.postJSON(t, "/password/reset", dto.ResetRequest{Email: "jane@cms.test"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, string(recovery.StateSent), decode[dto.ResetResponse](t, resp).Status)

	msg, ok := e.mail.Last()
	require.True(t, ok)
	link, err := url.Parse(msg.Data()["url"].(string))
	require.NoError(t, err)

	resp = e.get(t, link.EscapedPath())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, recovery.FlowConfirmReset, decode[dto.ResetResponse](t, resp).Flow)

	sent := e.mail.Sent()
	require.Len(t, sent, 2)
	newPassword, _ := sent[1].Data()["new_password"].(string)
	assert.True(t, e.users.CheckPassword(context.Background(), e.user.ID, newPassword))

	// el mismo link no sirve dos veces
	resp = e.get(t, link.EscapedPath())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "RESET_CODE_INVALID", decode[dto.ErrorResponse](t, resp).Code)
}

func TestPasswordReset_UnknownUser(t *testing.T) {
	e := newEnv(t, nil)

	e.postJSON(t, "/captcha/verify", dto.CaptchaVerifyRequest{Token: "good"})
	resp := e.postJSON(t, "/password/reset", dto.ResetRequest{Email: "nobody@cms.test"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "USER_NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
}

func TestConfirmReset_BadParams(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.get(t, "/password/reset/abc/code")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_PARAMETER", decode[dto.ErrorResponse](t, resp).Code)

	resp = e.get(t, "/password/reset/999/code")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPasswordReset_RateLimited(t *testing.T) {
	e := newEnv(t, rate.NewMemoryLimiter("rl:", 1, time.Minute))

	e.postJSON(t, "/captcha/verify", dto.CaptchaVerifyRequest{Token: "good"})
	resp := e.postJSON(t, "/password/reset", dto.ResetRequest{Email: "jane@cms.test"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = e.postJSON(t, "/password/reset", dto.ResetRequest{Email: "jane@cms.test"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", decode[dto.ErrorResponse](t, resp).Code)
}

func TestConfirmReset_RateLimitedAcrossCodes(t *testing.T) {
	e := newEnv(t, rate.NewMemoryLimiter("rl:", 1, time.Minute))

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		resp := e.get(t, fmt.Sprintf("/password/reset/%d/guess%d", e.user.ID, i))
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{
		http.StatusBadRequest,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestConfirmReset_CodeNeverLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.ReplaceForTests(zap.New(core))
	defer restore()

	e := newEnv(t, nil)
	e.postJSON(t, "/captcha/verify", dto.CaptchaVerifyRequest{Token: "good"})
	resp := e.postJSON(t, "/password/reset", dto.ResetRequest{Email: "jane@cms.test"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	msg, ok := e.mail.Last()
	require.True(t, ok)
	link, err := url.Parse(msg.Data()["url"].(string))
	require.NoError(t, err)

	const guess = "s3cret-guess-code"
	resp = e.get(t, fmt.Sprintf("/password/reset/%d/%s", e.user.ID, guess))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.get(t, link.EscapedPath())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validCode := link.EscapedPath()[len(fmt.Sprintf("/password/reset/%d/", e.user.ID)):]
	require.NotEmpty(t, validCode)

	entries := logs.All()
	require.NotEmpty(t, entries)
	var sawAudit, sawRoute bool
	for _, entry := range entries {
		assert.NotContains(t, entry.Message, guess)
		for k, v := range entry.ContextMap() {
			s := fmt.Sprint(v)
			assert.NotContains(t, s, guess, "field %q of %q", k, entry.Message)
			assert.NotContains(t, s, validCode, "field %q of %q", k, entry.Message)
			if k == "path" && s == "/password/reset/{id}/{code}" {
				sawRoute = true
			}
		}
		if entry.LoggerName == "audit" {
			sawAudit = true
		}
	}
	assert.True(t, sawAudit)
	assert.True(t, sawRoute)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, nil)

	resp := e.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[dto.HealthResponse](t, resp).Status)

	resp = e.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, resp).Code)
}

func TestCORS_Preflight(t *testing.T) {
	h := New(Deps{CORSOrigins: []string{"https://cms.test"}, Health: controllers.NewHealthController(nil)})

	req := httptest.NewRequest(http.MethodOptions, "/healthz", nil)
	req.Header.Set("Origin", "https://cms.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://cms.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

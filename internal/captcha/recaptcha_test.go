package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecaptchaProvider_PostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret-key", r.PostForm.Get("secret"))
		assert.Equal(t, "10.1.1.1", r.PostForm.Get("remoteip"))

		ok := r.PostForm.Get("response") == "valid-token"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":  ok,
			"score":    0.9,
			"hostname": "cms.test",
		})
	}))
	defer srv.Close()

	p := NewRecaptchaProvider("secret-key", srv.URL, time.Second)

	resp, err := p.Check(context.Background(), "valid-token", "10.1.1.1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "cms.test", resp.Hostname)

	resp, err = p.Check(context.Background(), "bad-token", "10.1.1.1")
	require.NoError(t, err)
	assert.False(t, resp.Success)
}

func TestRecaptchaProvider_BadResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/garbage":
			_, _ = w.Write([]byte("not json"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	_, err := NewRecaptchaProvider("k", srv.URL+"/garbage", time.Second).Check(context.Background(), "t", "")
	assert.Error(t, err)
	_, err = NewRecaptchaProvider("k", srv.URL+"/boom", time.Second).Check(context.Background(), "t", "")
	assert.Error(t, err)

	// a través del Verifier ambos terminan en failed
	v := NewVerifier(NewRecaptchaProvider("k", srv.URL+"/garbage", time.Second), Options{}, nil)
	assert.False(t, v.Verify(context.Background(), "t").Verified)
}

func TestRecaptchaProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewRecaptchaProvider("k", srv.URL, 20*time.Millisecond).Check(context.Background(), "t", "")
	assert.Error(t, err)
}

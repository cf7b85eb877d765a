package captcha

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	resp  Response
	err   error
	calls int
}

func (f *fakeProvider) Check(ctx context.Context, token, remoteIP string) (Response, error) {
	f.calls++
	return f.resp, f.err
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestVerify_Success(t *testing.T) {
	p := &fakeProvider{resp: Response{Success: true, Score: 0.9}}
	v := NewVerifier(p, Options{MinScore: 0.5}, clock)

	got := v.Verify(context.Background(), "valid-token")
	assert.True(t, got.Verified)
	assert.Equal(t, OutcomeSuccess, got.Outcome())
	assert.Equal(t, "success", got.Outcome().String())
	require.NotNil(t, got.PassedAt)
	assert.Equal(t, fixedNow, *got.PassedAt)
	assert.Equal(t, "valid-token", got.Token)
}

func TestVerify_EmptyTokenSkipsProvider(t *testing.T) {
	p := &fakeProvider{resp: Response{Success: true}}
	got := NewVerifier(p, Options{}, clock).Verify(context.Background(), "  ")
	assert.False(t, got.Verified)
	assert.Nil(t, got.PassedAt)
	assert.Zero(t, p.calls)
}

func TestVerify_FailsClosed(t *testing.T) {
	cases := map[string]*fakeProvider{
		"provider error":    {err: errors.New("connection reset")},
		"timeout":           {err: context.DeadlineExceeded},
		"success false":     {resp: Response{Success: false, ErrorCodes: []string{"invalid-input-response"}}},
		"score too low":     {resp: Response{Success: true, Score: 0.1}},
		"hostname mismatch": {resp: Response{Success: true, Hostname: "evil.test"}},
		"action mismatch":   {resp: Response{Success: true, Hostname: "cms.test", Action: "login"}},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			v := NewVerifier(p, Options{MinScore: 0.5, ExpectedHostname: "cms.test", ExpectedAction: "reset"}, clock)
			got := v.Verify(context.Background(), "token")
			assert.False(t, got.Verified)
			assert.Equal(t, "failed", got.Outcome().String())
			assert.Nil(t, got.PassedAt)
		})
	}
}

func TestVerify_ScoreOnlyCheckedWhenPresent(t *testing.T) {
	// reCAPTCHA v2 no devuelve score.
	p := &fakeProvider{resp: Response{Success: true}}
	got := NewVerifier(p, Options{MinScore: 0.5}, clock).Verify(context.Background(), "v2-token")
	assert.True(t, got.Verified)
}

func TestSkipProvider(t *testing.T) {
	got := NewVerifier(SkipProvider{}, Options{MinScore: 0.5}, clock).Verify(context.Background(), "anything")
	assert.True(t, got.Verified)
}

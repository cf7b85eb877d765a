package captcha

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dropDatabas3/recovery/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passStores(t *testing.T) map[string]*PassStore {
	mr := miniredis.RunT(t)
	rc, err := cache.New(context.Background(), cache.Config{Kind: "redis", Addr: mr.Addr()})
	require.NoError(t, err)
	return map[string]*PassStore{
		"memory": NewPassStore(cache.NewMemory("", 0)),
		"redis":  NewPassStore(rc),
	}
}

func TestPassStore_Window(t *testing.T) {
	for name, s := range passStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ok, err := s.PassedWithin(ctx, "sid-1", 5*time.Minute, fixedNow)
			require.NoError(t, err)
			assert.False(t, ok)

			v := NewVerifier(&fakeProvider{resp: Response{Success: true}}, Options{}, clock).Verify(ctx, "tok")
			require.NoError(t, s.Record(ctx, "sid-1", v, 5*time.Minute))

			ok, err = s.PassedWithin(ctx, "sid-1", 5*time.Minute, fixedNow.Add(4*time.Minute))
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.PassedWithin(ctx, "sid-1", 5*time.Minute, fixedNow.Add(6*time.Minute))
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = s.PassedWithin(ctx, "sid-2", 5*time.Minute, fixedNow)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPassStore_FailedVerificationKeepsPriorPass(t *testing.T) {
	for name, s := range passStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			good := NewVerifier(&fakeProvider{resp: Response{Success: true}}, Options{}, clock).Verify(ctx, "valid")
			require.NoError(t, s.Record(ctx, "sid", good, time.Hour))

			later := func() time.Time { return fixedNow.Add(time.Minute) }
			bad := NewVerifier(&fakeProvider{resp: Response{Success: false}}, Options{}, later).Verify(ctx, "invalid")
			assert.False(t, bad.Verified)
			require.NoError(t, s.Record(ctx, "sid", bad, time.Hour))

			at, ok, err := s.PassedAt(ctx, "sid")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, at.Equal(fixedNow))
		})
	}
}

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/recovery/internal/security/password"
	"github.com/dropDatabas3/recovery/internal/store"
)

var fastParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func seeded(t *testing.T, now func() time.Time) (*Store, store.User) {
	t.Helper()
	s := New(Options{CodeTTL: time.Hour, Params: fastParams, Now: now})
	u, err := s.Create(context.Background(), store.NewUser{Email: "Known@X.tld", FirstName: "Ana", LastName: "Pérez", Password: "OldPassw0rd123"})
	require.NoError(t, err)
	return s, u
}

func TestCreateAndFind(t *testing.T) {
	s, u := seeded(t, nil)
	ctx := context.Background()

	got, err := s.FindByLogin(ctx, " KNOWN@x.tld ")
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.Equal(t, "known@x.tld", got.Email)

	_, err = s.FindByLogin(ctx, "unknown@x.tld")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindByID(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Create(ctx, store.NewUser{Email: "known@x.tld"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestResetCodeLifecycle(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, u := seeded(t, func() time.Time { return clock })
	ctx := context.Background()

	first, err := s.IssueResetCode(ctx, u)
	require.NoError(t, err)
	code, err := s.IssueResetCode(ctx, u)
	require.NoError(t, err)
	assert.NotEqual(t, first, code)

	ok, _ := s.CheckResetCode(ctx, u, first)
	assert.False(t, ok, "a new code invalidates the previous one")
	ok, _ = s.CheckResetCode(ctx, u, code)
	assert.True(t, ok)

	ok, err = s.SetNewPassword(ctx, u, code, "BrandNewPassw0rd")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, s.CheckPassword(ctx, u.ID, "BrandNewPassw0rd"))
	assert.False(t, s.CheckPassword(ctx, u.ID, "OldPassw0rd123"))

	ok, _ = s.CheckResetCode(ctx, u, code)
	assert.False(t, ok, "consumed")
}

func TestResetCodeExpires(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, u := seeded(t, func() time.Time { return clock })
	ctx := context.Background()

	code, err := s.IssueResetCode(ctx, u)
	require.NoError(t, err)
	clock = clock.Add(61 * time.Minute)

	ok, _ := s.CheckResetCode(ctx, u, code)
	assert.False(t, ok)
	ok, _ = s.SetNewPassword(ctx, u, code, "BrandNewPassw0rd")
	assert.False(t, ok)
}

func TestSetNewPassword_ConcurrentConfirmsOneWins(t *testing.T) {
	s, u := seeded(t, nil)
	ctx := context.Background()
	code, err := s.IssueResetCode(ctx, u)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.SetNewPassword(ctx, u, code, "ConcurrentPassw0rd")
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestThrottles(t *testing.T) {
	s, u := seeded(t, nil)
	ctx := context.Background()

	th, err := s.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, th.Suspended)

	s.Suspend(ctx, u.ID, 5)
	th, err = s.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, th.Suspended)
	assert.Equal(t, 5, th.Attempts)

	require.NoError(t, th.Unsuspend(ctx))
	th, _ = s.FindByUserID(ctx, u.ID)
	assert.False(t, th.Suspended)
	assert.Zero(t, th.Attempts)
}

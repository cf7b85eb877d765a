package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el mismo fixed window pero en proceso (cache.kind=memory).
type MemoryLimiter struct {
	c      *gocache.Cache
	Prefix string
	Max    int64
	Window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(prefix string, max int, window time.Duration) *MemoryLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	k := windowKey(l.Prefix, key, l.Window, now)
	end := now.UTC().Truncate(l.Window).Add(l.Window)

	// Add falla si ya existe; en ese caso sólo incrementamos.
	_ = l.c.Add(k, int64(0), end.Sub(now))
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// expiró entre Add e Increment: nueva ventana
		l.c.Set(k, int64(1), l.Window)
		hits = 1
	}
	return result(hits, l.Max, end.Sub(now), l.Window), nil
}

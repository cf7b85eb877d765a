package captcha

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/recovery/internal/cache"
)

// sessionKey es la clave del pase dentro de la sesión.
const sessionKey = "captcha.passed.time"

// PassStore guarda el momento del último captcha aprobado por sesión.
type PassStore struct {
	c cache.Client
}

func NewPassStore(c cache.Client) *PassStore { return &PassStore{c: c} }

func key(sid string) string { return sessionKey + ":" + sid }

// Record guarda v.PassedAt para sid. Una verificación fallida no toca nada.
func (s *PassStore) Record(ctx context.Context, sid string, v Verification, window time.Duration) error {
	if !v.Verified || v.PassedAt == nil {
		return nil
	}
	if err := s.c.Set(ctx, key(sid), v.PassedAt.UTC().Format(time.RFC3339Nano), window); err != nil {
		return fmt.Errorf("captcha: record pass: %w", err)
	}
	return nil
}

// PassedAt devuelve el último pase de sid, si hay.
func (s *PassStore) PassedAt(ctx context.Context, sid string) (time.Time, bool, error) {
	raw, err := s.c.Get(ctx, key(sid))
	if cache.IsNotFound(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("captcha: read pass: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, nil
	}
	return at, true, nil
}

// PassedWithin dice si sid pasó el captcha en los últimos window respecto a now.
func (s *PassStore) PassedWithin(ctx context.Context, sid string, window time.Duration, now time.Time) (bool, error) {
	if sid == "" {
		return false, nil
	}
	at, ok, err := s.PassedAt(ctx, sid)
	if err != nil || !ok {
		return false, err
	}
	return now.Sub(at) <= window, nil
}

// Package store define los datos de usuarios y throttles que usa la
// recuperación de cuenta. Las implementaciones viven en store/memory y
// store/sqlstore.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

// User es la vista mínima de un usuario. Los hashes nunca salen del store.
type User struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
}

// FullName devuelve "First Last" sin espacios sobrantes.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// NewUser son los datos para dar de alta un usuario (seed, tests).
type NewUser struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// NormalizeLogin deja el login como se guarda: sin espacios y en minúsculas.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// Throttle es el estado de suspensión de una cuenta. Una cuenta sin fila
// de throttle se ve como no suspendida.
type Throttle struct {
	UserID      int64
	Suspended   bool
	SuspendedAt *time.Time
	Attempts    int

	unsuspend func(ctx context.Context) error
}

// NewThrottle arma un Throttle ligado a la función que lo levanta en su backend.
func NewThrottle(t Throttle, unsuspend func(ctx context.Context) error) Throttle {
	t.unsuspend = unsuspend
	return t
}

// Unsuspend levanta la suspensión y resetea los intentos.
func (t Throttle) Unsuspend(ctx context.Context) error {
	if t.unsuspend == nil {
		return errors.New("store: throttle not bound to a backend")
	}
	return t.unsuspend(ctx)
}

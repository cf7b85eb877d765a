// Package memory es el store en proceso (storage.driver=memory): dev y tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/recovery/internal/security/password"
	tokens "github.com/dropDatabas3/recovery/internal/security/token"
	"github.com/dropDatabas3/recovery/internal/store"
)

type userRow struct {
	user         store.User
	passwordHash string
	codeHash     string
	codeIssuedAt time.Time
}

type throttleRow struct {
	suspended   bool
	suspendedAt *time.Time
	attempts    int
}

// Options del store en memoria.
type Options struct {
	CodeTTL    time.Duration
	Params     password.Params
	Now        func() time.Time
	TokenBytes int
}

// Store guarda usuarios y throttles en maps protegidos por un mutex.
// Todas las operaciones que leen y escriben un código lo hacen bajo el mismo lock.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*userRow
	byEmail   map[string]int64
	throttles map[int64]*throttleRow
	opts      Options
}

func New(opts Options) *Store {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = time.Hour
	}
	if opts.Params == (password.Params{}) {
		opts.Params = password.Default
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenBytes <= 0 {
		opts.TokenBytes = 24
	}
	return &Store{
		users:     map[int64]*userRow{},
		byEmail:   map[string]int64{},
		throttles: map[int64]*throttleRow{},
		opts:      opts,
	}
}

// Create da de alta un usuario. Email duplicado = ErrConflict.
func (s *Store) Create(ctx context.Context, nu store.NewUser) (store.User, error) {
	email := store.NormalizeLogin(nu.Email)
	if email == "" {
		return store.User{}, fmt.Errorf("memory: create user: empty email")
	}
	var phc string
	if nu.Password != "" {
		h, err := password.Hash(s.opts.Params, nu.Password)
		if err != nil {
			return store.User{}, fmt.Errorf("memory: create user: %w", err)
		}
		phc = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return store.User{}, store.ErrConflict
	}
	s.nextID++
	u := store.User{ID: s.nextID, Email: email, FirstName: nu.FirstName, LastName: nu.LastName}
	s.users[u.ID] = &userRow{user: u, passwordHash: phc}
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *Store) FindByLogin(ctx context.Context, login string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[store.NormalizeLogin(login)]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return s.users[id].user, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return row.user, nil
}

// IssueResetCode genera un código nuevo; invalida el anterior.
func (s *Store) IssueResetCode(ctx context.Context, u store.User) (string, error) {
	code, err := tokens.GenerateOpaqueToken(s.opts.TokenBytes)
	if err != nil {
		return "", fmt.Errorf("memory: issue reset code: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.users[u.ID]
	if !ok {
		return "", store.ErrNotFound
	}
	row.codeHash = tokens.SHA256Base64URL(code)
	row.codeIssuedAt = s.opts.Now()
	return code, nil
}

func (s *Store) CheckResetCode(ctx context.Context, u store.User, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.users[u.ID]
	if !ok {
		return false, store.ErrNotFound
	}
	return s.codeValid(row, code), nil
}

// SetNewPassword cambia la contraseña y consume el código en un solo paso.
// Devuelve false si el código ya no es válido (p.ej. otro confirm lo consumió).
func (s *Store) SetNewPassword(ctx context.Context, u store.User, code, newPassword string) (bool, error) {
	phc, err := password.Hash(s.opts.Params, newPassword)
	if err != nil {
		return false, fmt.Errorf("memory: set new password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.users[u.ID]
	if !ok {
		return false, store.ErrNotFound
	}
	if !s.codeValid(row, code) {
		return false, nil
	}
	row.passwordHash = phc
	row.codeHash = ""
	row.codeIssuedAt = time.Time{}
	return true, nil
}

// CheckPassword sirve para tests y para el CLI de seed.
func (s *Store) CheckPassword(ctx context.Context, id int64, plain string) bool {
	s.mu.Lock()
	phc := ""
	if row, ok := s.users[id]; ok {
		phc = row.passwordHash
	}
	s.mu.Unlock()
	return phc != "" && password.Verify(plain, phc)
}

func (s *Store) codeValid(row *userRow, code string) bool {
	if row.codeHash == "" || code == "" {
		return false
	}
	if s.opts.Now().Sub(row.codeIssuedAt) > s.opts.CodeTTL {
		return false
	}
	return tokens.EqualHash(code, row.codeHash)
}

// ─── Throttles ───

// Suspend marca la cuenta como suspendida (la usan los tests y el seed).
func (s *Store) Suspend(ctx context.Context, userID int64, attempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.opts.Now()
	s.throttles[userID] = &throttleRow{suspended: true, suspendedAt: &at, attempts: attempts}
}

func (s *Store) FindByUserID(ctx context.Context, userID int64) (store.Throttle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := store.Throttle{UserID: userID}
	if row, ok := s.throttles[userID]; ok {
		t.Suspended = row.suspended
		t.SuspendedAt = row.suspendedAt
		t.Attempts = row.attempts
	}
	return store.NewThrottle(t, func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.throttles, userID)
		return nil
	}), nil
}

// Package sqlstore implementa el store sobre database/sql.
//
// Drivers soportados:
//   - "pgx"   (github.com/jackc/pgx/v5/stdlib), PostgreSQL 13+
//   - "mysql" (github.com/go-sql-driver/mysql), MySQL 8.0+; el DSN debe
//     incluir parseTime=true
//
// Las queries se escriben con '?' y se reescriben a $n para pgx.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dropDatabas3/recovery/internal/security/password"
	tokens "github.com/dropDatabas3/recovery/internal/security/token"
	"github.com/dropDatabas3/recovery/internal/store"
)

// Config de conexión y de comportamiento del store.
type Config struct {
	Driver          string // pgx | mysql
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	CodeTTL    time.Duration
	Params     password.Params
	TokenBytes int
}

// Store es el repositorio de usuarios y throttles sobre SQL.
type Store struct {
	db      *sql.DB
	driver  string
	codeTTL time.Duration
	params  password.Params
	nbytes  int
	now     func() time.Time
}

// Open abre el pool y verifica conectividad.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Driver {
	case "pgx", "mysql":
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: %s: empty dsn", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: ping failed: %w", err)
	}
	return New(db, cfg), nil
}

// New envuelve un *sql.DB ya abierto (tests con sqlmock, pools compartidos).
func New(db *sql.DB, cfg Config) *Store {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = time.Hour
	}
	if cfg.Params == (password.Params{}) {
		cfg.Params = password.Default
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = 24
	}
	return &Store{
		db:      db,
		driver:  cfg.Driver,
		codeTTL: cfg.CodeTTL,
		params:  cfg.Params,
		nbytes:  cfg.TokenBytes,
		now:     time.Now,
	}
}

func (s *Store) DB() *sql.DB                    { return s.db }
func (s *Store) Driver() string                 { return s.driver }
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *Store) Close() error                   { return s.db.Close() }

// q reescribe los '?' a $1..$n para pgx.
func (s *Store) q(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const userColumns = `id, email, first_name, last_name`

func scanUser(row *sql.Row) (store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	return u, err
}

// Create da de alta un usuario (seed).
func (s *Store) Create(ctx context.Context, nu store.NewUser) (store.User, error) {
	email := store.NormalizeLogin(nu.Email)
	var phc sql.NullString
	if nu.Password != "" {
		h, err := password.Hash(s.params, nu.Password)
		if err != nil {
			return store.User{}, fmt.Errorf("sqlstore: create user: %w", err)
		}
		phc = sql.NullString{String: h, Valid: true}
	}

	u := store.User{Email: email, FirstName: nu.FirstName, LastName: nu.LastName}
	if s.driver == "pgx" {
		err := s.db.QueryRowContext(ctx, s.q(`
			INSERT INTO users (email, first_name, last_name, password_hash)
			VALUES (?, ?, ?, ?) RETURNING id`),
			email, nu.FirstName, nu.LastName, phc,
		).Scan(&u.ID)
		if err != nil {
			return store.User{}, fmt.Errorf("sqlstore: create user: %w", err)
		}
		return u, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, first_name, last_name, password_hash)
		VALUES (?, ?, ?, ?)`,
		email, nu.FirstName, nu.LastName, phc,
	)
	if err != nil {
		return store.User{}, fmt.Errorf("sqlstore: create user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return store.User{}, fmt.Errorf("sqlstore: create user: %w", err)
	}
	return u, nil
}

func (s *Store) FindByLogin(ctx context.Context, login string) (store.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users WHERE email = ?`), store.NormalizeLogin(login)))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return store.User{}, fmt.Errorf("sqlstore: find by login: %w", err)
	}
	return u, err
}

func (s *Store) FindByID(ctx context.Context, id int64) (store.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return store.User{}, fmt.Errorf("sqlstore: find by id: %w", err)
	}
	return u, err
}

// IssueResetCode guarda el hash de un código nuevo y devuelve el código en claro.
func (s *Store) IssueResetCode(ctx context.Context, u store.User) (string, error) {
	code, err := tokens.GenerateOpaqueToken(s.nbytes)
	if err != nil {
		return "", fmt.Errorf("sqlstore: issue reset code: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE users SET reset_code_hash = ?, reset_code_issued_at = ? WHERE id = ?`),
		tokens.SHA256Base64URL(code), s.now().UTC(), u.ID,
	)
	if err != nil {
		return "", fmt.Errorf("sqlstore: issue reset code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", store.ErrNotFound
	}
	return code, nil
}

func (s *Store) CheckResetCode(ctx context.Context, u store.User, code string) (bool, error) {
	var hash sql.NullString
	var issuedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT reset_code_hash, reset_code_issued_at FROM users WHERE id = ?`), u.ID,
	).Scan(&hash, &issuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, store.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("sqlstore: check reset code: %w", err)
	}
	if !hash.Valid || !issuedAt.Valid || code == "" {
		return false, nil
	}
	if s.now().Sub(issuedAt.Time) > s.codeTTL {
		return false, nil
	}
	return tokens.EqualHash(code, hash.String), nil
}

// SetNewPassword cambia la contraseña y consume el código con un único UPDATE
// condicionado; dos confirms concurrentes con el mismo código no pueden ganar ambos.
func (s *Store) SetNewPassword(ctx context.Context, u store.User, code, newPassword string) (bool, error) {
	if code == "" {
		return false, nil
	}
	phc, err := password.Hash(s.params, newPassword)
	if err != nil {
		return false, fmt.Errorf("sqlstore: set new password: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users
		   SET password_hash = ?, reset_code_hash = NULL, reset_code_issued_at = NULL
		 WHERE id = ? AND reset_code_hash = ? AND reset_code_issued_at > ?`),
		phc, u.ID, tokens.SHA256Base64URL(code), s.now().Add(-s.codeTTL).UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlstore: set new password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlstore: set new password: %w", err)
	}
	return n == 1, nil
}

// ─── Throttles ───

func (s *Store) FindByUserID(ctx context.Context, userID int64) (store.Throttle, error) {
	t := store.Throttle{UserID: userID}
	var suspendedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT suspended, suspended_at, attempts FROM throttles WHERE user_id = ?`), userID,
	).Scan(&t.Suspended, &suspendedAt, &t.Attempts)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return store.Throttle{}, fmt.Errorf("sqlstore: find throttle: %w", err)
	}
	if suspendedAt.Valid {
		at := suspendedAt.Time
		t.SuspendedAt = &at
	}
	return store.NewThrottle(t, func(ctx context.Context) error {
		return s.unsuspend(ctx, userID)
	}), nil
}

func (s *Store) unsuspend(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		s.q(`UPDATE throttles SET suspended = FALSE, suspended_at = NULL, attempts = 0 WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("sqlstore: unsuspend: %w", err)
	}
	return nil
}

package sqlstore

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Formato de archivo: {version}_{name}.sql (ej: 0001_init.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// Migrator aplica las migraciones embebidas (migrations/postgres o migrations/mysql).
type Migrator struct {
	fsys fs.FS
	dir  string
}

func NewMigrator(fsys fs.FS, dir string) *Migrator {
	if dir == "" {
		dir = "."
	}
	return &Migrator{fsys: fsys, dir: dir}
}

// ParseMigrations lee y ordena por versión las migraciones del FS.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, err
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := migrationFilePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		version, _ := strconv.Atoi(match[1])
		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: match[2], SQL: string(content)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Run aplica las migraciones pendientes sobre s.
func (m *Migrator) Run(ctx context.Context, s *Store) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{}

	if err := m.ensureTable(ctx, s); err != nil {
		return res, fmt.Errorf("creating migrations table: %w", err)
	}
	applied, err := m.appliedVersions(ctx, s)
	if err != nil {
		return res, fmt.Errorf("getting applied migrations: %w", err)
	}
	migrations, err := m.ParseMigrations()
	if err != nil {
		return res, fmt.Errorf("parsing migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if err := m.apply(ctx, s, mig); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		res.Applied = append(res.Applied, mig.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Pending devuelve las versiones todavía no aplicadas.
func (m *Migrator) Pending(ctx context.Context, s *Store) ([]int, error) {
	if err := m.ensureTable(ctx, s); err != nil {
		return nil, err
	}
	applied, err := m.appliedVersions(ctx, s)
	if err != nil {
		return nil, err
	}
	migrations, err := m.ParseMigrations()
	if err != nil {
		return nil, err
	}
	var out []int
	for _, mig := range migrations {
		if !applied[mig.Version] {
			out = append(out, mig.Version)
		}
	}
	return out, nil
}

func (m *Migrator) ensureTable(ctx context.Context, s *Store) error {
	createSQL := `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`
	if s.driver == "mysql" {
		createSQL = `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`
	}
	_, err := s.db.ExecContext(ctx, createSQL)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context, s *Store) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply corre la migración y la registra en la misma transacción (en MySQL
// el DDL hace commit implícito, así que ahí es best effort).
func (m *Migrator) apply(ctx context.Context, s *Store, mig Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(mig.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO _migrations (version, name) VALUES (?, ?)`), mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements separa por ';' de fin de sentencia. Las migraciones no
// usan ';' dentro de literales.
func splitStatements(src string) []string {
	var out []string
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] != ';' {
			continue
		}
		if stmt := strings.TrimSpace(src[start:i]); stmt != "" {
			out = append(out, stmt)
		}
		start = i + 1
	}
	if stmt := strings.TrimSpace(src[start:]); stmt != "" {
		out = append(out, stmt)
	}
	return out
}

// Package postgres embebe las migraciones SQL para PostgreSQL.
package postgres

import "embed"

//go:embed *.sql
var FS embed.FS

// Package mysql embebe las migraciones SQL para MySQL.
package mysql

import "embed"

//go:embed *.sql
var FS embed.FS

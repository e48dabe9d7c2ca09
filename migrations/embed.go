// Package migrations carries the MySQL schema, applied in version order by golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

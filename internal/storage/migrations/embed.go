package migrations

import "embed"

// FS holds the SQLite schema. Files are named NNN_description.sql and are
// applied in version order by sqlite.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS

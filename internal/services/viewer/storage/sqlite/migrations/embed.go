package migrations

import "embed"

// FS contains embedded SQLite migrations for timeline storage.
//
//go:embed *.sql
var FS embed.FS

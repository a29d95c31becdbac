package migrations

import "embed"

// FS contains embedded SQLite migrations for league storage.
//
//go:embed *.sql
var FS embed.FS

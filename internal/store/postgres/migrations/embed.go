package migrations

import "embed"

// FS contains the embedded schema migrations.
//
//go:embed *.sql
var FS embed.FS

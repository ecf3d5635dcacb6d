// Package migrations embeds the ordered, versioned schema migrations applied at startup.
package migrations

import "embed"

// FS holds every *.sql migration in golang-migrate naming (NNNNNN_name.up.sql / .down.sql).
//
//go:embed *.sql
var FS embed.FS

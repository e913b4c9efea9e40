// Package migrations embeds the goose SQL migrations of the viewer's local
// history database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

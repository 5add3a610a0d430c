// Package migrations embeds the Postgres schema for the widget storage backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations embeds the SQL schema of the submission audit store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

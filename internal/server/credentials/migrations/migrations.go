// Package migrations embeds the credential file schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

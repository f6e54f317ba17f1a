// Package migrations embeds goose SQL migrations for the shared schema and
// the DDL template used to provision per-tenant schemas.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

// Package migrations holds the Migration Runner (C11): idempotent,
// additive-only bun migrations for every table the State and Auth engines
// persist to.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry every migration file in this package appends
// itself to via init(). cmd/statectl wires it into a bun/migrate Migrator.
var Migrations = migrate.NewMigrations()

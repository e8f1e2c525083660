package migrations

import "github.com/uptrace/bun"

// DialectName returns the database dialect name for the given handle.
func DialectName(db *bun.DB) string {
	return db.Dialect().Name()
}

// IsSQLite reports whether db is backed by SQLite.
func IsSQLite(db *bun.DB) bool {
	return DialectName(db) == "sqlite"
}

// IsPostgreSQL reports whether db is backed by PostgreSQL.
func IsPostgreSQL(db *bun.DB) bool {
	return DialectName(db) == "pg"
}

package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string for database primary keys.
//
// UUIDv7 keeps newly inserted rows clustered in the index, which matters for
// the ordered reads the state store and session repository depend on
// ((project_id, workspace, imported_at) ordering, refresh-session chains).
//
// This panics only on entropy exhaustion, at which point nothing else in the
// process could proceed safely either.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Package authrepo implements the Session Repository (C8): typed bun-backed
// persistence for users, refresh sessions, and audit events.
package authrepo

import (
	"fmt"
	"strings"
)

// ConflictError is raised when a create would violate a uniqueness
// constraint — an email already registered, most commonly.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// NotFoundError covers a missing user, session, or other row this
// repository is asked to fetch by id.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "23505")
}

package statestore

import "fmt"

// NotFoundError corresponds to StateNotFound in spec §7 — an unknown snapshot id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("snapshot %q not found", e.ID)
}

// MutationError corresponds to MutationError in spec §7 — an address that
// doesn't match any resource, or a snapshot changed under a concurrent writer.
type MutationError struct {
	Reason string
}

func (e *MutationError) Error() string {
	return e.Reason
}

func newMutationError(reason string) *MutationError {
	return &MutationError{Reason: reason}
}

// Package statestore implements the State Store (C4): transactional
// persistence of snapshots and their derived rows, read projections, and
// the address-level mutation protocol.
package statestore

import (
	"context"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
)

// Repository is the persistence contract the Service depends on. The bun
// implementation in bun_repository.go is the only production adapter; tests
// may substitute an in-memory fake.
type Repository interface {
	// Persist writes a snapshot and its children in one transaction.
	Persist(ctx context.Context, snapshot *models.StateSnapshot, resources []*models.ResourceInstance, outputs []*models.Output) error

	// List returns snapshots for a project, newest first, optionally scoped to a workspace.
	List(ctx context.Context, projectID string, workspace *string) ([]*models.StateSnapshot, error)

	// Get fetches a snapshot by id. includeCanonical controls whether the
	// (potentially large) canonical JSON column is populated.
	Get(ctx context.Context, id string, includeCanonical bool) (*models.StateSnapshot, error)

	// Resources returns a page of a snapshot's resources ordered by address.
	Resources(ctx context.Context, snapshotID string, limit, offset int) ([]*models.ResourceInstance, error)

	// Outputs returns a snapshot's outputs ordered by name.
	Outputs(ctx context.Context, snapshotID string) ([]*models.Output, error)

	// ReplaceChildren deletes and re-inserts a snapshot's resources/outputs
	// and updates its summary columns (checksum, counts, canonical_json),
	// all within one transaction. Used by the mutation protocol in §4.4.
	// expectedChecksum guards the write optimistically: if the persisted
	// checksum no longer matches, the snapshot changed underneath the
	// caller and ReplaceChildren returns a *MutationError.
	ReplaceChildren(ctx context.Context, snapshot *models.StateSnapshot, resources []*models.ResourceInstance, outputs []*models.Output, expectedChecksum string) error

	// SaveDrift persists one drift detection run.
	SaveDrift(ctx context.Context, drift *models.DriftDetection) error
}

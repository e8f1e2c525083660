package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

// BunRepository persists the State Engine's rows using Bun, following the
// teacher's RunInTx transactional-write idiom.
type BunRepository struct {
	db *bun.DB
}

// NewBunRepository constructs a Repository backed by Bun.
func NewBunRepository(db *bun.DB) Repository {
	return &BunRepository{db: db}
}

func (r *BunRepository) Persist(ctx context.Context, snapshot *models.StateSnapshot, resources []*models.ResourceInstance, outputs []*models.Output) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(snapshot).Exec(ctx); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		if len(resources) > 0 {
			if _, err := tx.NewInsert().Model(&resources).Exec(ctx); err != nil {
				return fmt.Errorf("insert resources: %w", err)
			}
		}
		if len(outputs) > 0 {
			if _, err := tx.NewInsert().Model(&outputs).Exec(ctx); err != nil {
				return fmt.Errorf("insert outputs: %w", err)
			}
		}
		return nil
	})
}

func (r *BunRepository) List(ctx context.Context, projectID string, workspace *string) ([]*models.StateSnapshot, error) {
	var snapshots []*models.StateSnapshot
	q := r.db.NewSelect().
		Model(&snapshots).
		Column("id", "project_id", "workspace", "backend_type", "backend_config",
			"serial", "terraform_version", "lineage", "resource_count", "output_count",
			"size_bytes", "checksum", "imported_at").
		Where("project_id = ?", projectID).
		OrderExpr("imported_at DESC")
	if workspace != nil {
		q = q.Where("workspace = ?", *workspace)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

func (r *BunRepository) Get(ctx context.Context, id string, includeCanonical bool) (*models.StateSnapshot, error) {
	snapshot := new(models.StateSnapshot)
	q := r.db.NewSelect().Model(snapshot).Where("id = ?", id)
	if !includeCanonical {
		q = q.ExcludeColumn("canonical_json")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snapshot, nil
}

func (r *BunRepository) Resources(ctx context.Context, snapshotID string, limit, offset int) ([]*models.ResourceInstance, error) {
	var resources []*models.ResourceInstance
	err := r.db.NewSelect().
		Model(&resources).
		Where("snapshot_id = ?", snapshotID).
		OrderExpr("address ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

func (r *BunRepository) Outputs(ctx context.Context, snapshotID string) ([]*models.Output, error) {
	var outputs []*models.Output
	err := r.db.NewSelect().
		Model(&outputs).
		Where("snapshot_id = ?", snapshotID).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outputs: %w", err)
	}
	return outputs, nil
}

// ReplaceChildren implements the round-trip invariant described in spec
// §4.4: delete-then-insert of all derived rows, with the summary columns on
// snapshot written in the same transaction so readers never observe a
// snapshot whose counts/checksum disagree with its children.
func (r *BunRepository) ReplaceChildren(ctx context.Context, snapshot *models.StateSnapshot, resources []*models.ResourceInstance, outputs []*models.Output, expectedChecksum string) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		current := new(models.StateSnapshot)
		if err := tx.NewSelect().Model(current).Where("id = ?", snapshot.ID).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &NotFoundError{ID: snapshot.ID}
			}
			return fmt.Errorf("load snapshot for update: %w", err)
		}
		if current.Checksum != expectedChecksum {
			return newMutationError("snapshot changed")
		}

		if _, err := tx.NewDelete().Model((*models.ResourceInstance)(nil)).Where("snapshot_id = ?", snapshot.ID).Exec(ctx); err != nil {
			return fmt.Errorf("delete old resources: %w", err)
		}
		if _, err := tx.NewDelete().Model((*models.Output)(nil)).Where("snapshot_id = ?", snapshot.ID).Exec(ctx); err != nil {
			return fmt.Errorf("delete old outputs: %w", err)
		}

		if len(resources) > 0 {
			if _, err := tx.NewInsert().Model(&resources).Exec(ctx); err != nil {
				return fmt.Errorf("insert resources: %w", err)
			}
		}
		if len(outputs) > 0 {
			if _, err := tx.NewInsert().Model(&outputs).Exec(ctx); err != nil {
				return fmt.Errorf("insert outputs: %w", err)
			}
		}

		// The WHERE clause re-checks the checksum the row carried at the
		// top of this transaction: under serializable isolation a
		// concurrent writer that committed in between aborts this
		// transaction with a serialization failure, and the affected-rows
		// check below also catches a driver that honors a weaker isolation
		// level than requested.
		res, err := tx.NewUpdate().
			Model(snapshot).
			Column("serial", "terraform_version", "lineage", "resource_count",
				"output_count", "size_bytes", "checksum", "canonical_json").
			Where("id = ? AND checksum = ?", snapshot.ID, expectedChecksum).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update snapshot summary: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("check update result: %w", err)
		}
		if affected == 0 {
			return newMutationError("snapshot changed")
		}
		return nil
	})
}

func (r *BunRepository) SaveDrift(ctx context.Context, drift *models.DriftDetection) error {
	if _, err := r.db.NewInsert().Model(drift).Exec(ctx); err != nil {
		return fmt.Errorf("insert drift detection: %w", err)
	}
	return nil
}

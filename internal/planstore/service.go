// Package planstore persists submitted Terraform plan documents so drift
// runs can be replayed or audited after the fact (spec §3.1 / §6.4).
package planstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

// NotFoundError reports a plan id with no matching row.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("plan %q not found", e.ID) }

// Service records and retrieves terraform_plans rows.
type Service struct {
	db *bun.DB
}

// NewService constructs a Service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Submit persists a plan document against a project/workspace, optionally
// tying it to the snapshot it was compared against.
func (s *Service) Submit(ctx context.Context, projectID, workspace string, snapshotID *string, rawPlan map[string]any) (*models.TerraformPlan, error) {
	record := &models.TerraformPlan{
		ID:                   bunx.NewUUIDv7(),
		ProjectID:            projectID,
		Workspace:            workspace,
		SnapshotID:           snapshotID,
		RawPlan:              models.JSONValue{V: rawPlan},
		ResourceChangesCount: countResourceChanges(rawPlan),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert terraform plan: %w", err)
	}
	return record, nil
}

// List returns plans submitted for a project, optionally narrowed to one
// workspace, newest first.
func (s *Service) List(ctx context.Context, projectID string, workspace *string) ([]*models.TerraformPlan, error) {
	var rows []*models.TerraformPlan
	q := s.db.NewSelect().
		Model(&rows).
		ExcludeColumn("raw_plan").
		Where("project_id = ?", projectID).
		OrderExpr("created_at DESC")
	if workspace != nil {
		q = q.Where("workspace = ?", *workspace)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list terraform plans: %w", err)
	}
	return rows, nil
}

// Get fetches one plan, including its raw document, by id.
func (s *Service) Get(ctx context.Context, id string) (*models.TerraformPlan, error) {
	record := new(models.TerraformPlan)
	if err := s.db.NewSelect().Model(record).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("get terraform plan: %w", err)
	}
	return record, nil
}

func countResourceChanges(plan map[string]any) int {
	changes, _ := plan["resource_changes"].([]any)
	return len(changes)
}

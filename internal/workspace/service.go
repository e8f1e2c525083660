package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

// ComparisonType names one of the three comparison dimensions in spec §4.10.
type ComparisonType string

const (
	TypeVariables ComparisonType = "variables"
	TypeState     ComparisonType = "state"
	TypeConfig    ComparisonType = "config"
)

// Service runs workspace comparisons and persists the resulting
// WorkspaceComparison row.
type Service struct {
	db *bun.DB
}

// NewService constructs a Service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// CreateWorkspace registers a new named workspace under a project.
func (s *Service) CreateWorkspace(ctx context.Context, projectID, name string) (*models.Workspace, error) {
	ws := &models.Workspace{
		ID:        bunx.NewUUIDv7(),
		ProjectID: projectID,
		Name:      name,
	}
	if _, err := s.db.NewInsert().Model(ws).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert workspace: %w", err)
	}
	return ws, nil
}

// ListWorkspaces returns every workspace registered under a project.
func (s *Service) ListWorkspaces(ctx context.Context, projectID string) ([]*models.Workspace, error) {
	var rows []*models.Workspace
	err := s.db.NewSelect().Model(&rows).Where("project_id = ?", projectID).OrderExpr("name ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return rows, nil
}

// SetVariable upserts a workspace variable by (workspace_id, key).
func (s *Service) SetVariable(ctx context.Context, workspaceID, key string, value any, sensitive bool) (*models.WorkspaceVariable, error) {
	v := &models.WorkspaceVariable{
		ID:          bunx.NewUUIDv7(),
		WorkspaceID: workspaceID,
		Key:         key,
		Value:       models.JSONValue{V: value},
		Sensitive:   sensitive,
	}
	_, err := s.db.NewInsert().
		Model(v).
		On("CONFLICT (workspace_id, key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("sensitive = EXCLUDED.sensitive").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("upsert workspace variable: %w", err)
	}
	return v, nil
}

// ListVariables returns a workspace's variables ordered by key.
func (s *Service) ListVariables(ctx context.Context, workspaceID string) ([]*models.WorkspaceVariable, error) {
	var rows []*models.WorkspaceVariable
	err := s.db.NewSelect().Model(&rows).Where("workspace_id = ?", workspaceID).OrderExpr("key ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspace variables: %w", err)
	}
	return rows, nil
}

// Compare runs the requested comparison types between two workspaces and
// persists one WorkspaceComparison row with the combined difference list.
func (s *Service) Compare(ctx context.Context, projectID, workspaceAID, workspaceBID string, types []ComparisonType, infoKeys []string) (*models.WorkspaceComparison, error) {
	var all []Difference

	for _, t := range types {
		switch t {
		case TypeVariables:
			varsA, err := s.loadVariables(ctx, workspaceAID)
			if err != nil {
				return nil, err
			}
			varsB, err := s.loadVariables(ctx, workspaceBID)
			if err != nil {
				return nil, err
			}
			all = append(all, CompareVariables(varsA, varsB, infoKeys)...)

		case TypeState, TypeConfig:
			metaA, addrA, err := s.latestSnapshotView(ctx, workspaceAID)
			if err != nil {
				return nil, err
			}
			metaB, addrB, err := s.latestSnapshotView(ctx, workspaceBID)
			if err != nil {
				return nil, err
			}
			if metaA != nil && metaB != nil {
				all = append(all, CompareStateMetadata(*metaA, *metaB)...)
			}
			all = append(all, CompareResourceSets(addrA, addrB)...)
		}
	}

	payload := make(models.JSONList, 0, len(all))
	for _, d := range all {
		payload = append(payload, map[string]any{
			"category":          d.Category,
			"item":              d.Item,
			"workspace_a_value": d.ValueA,
			"workspace_b_value": d.ValueB,
			"severity":          d.Severity,
		})
	}

	comparisonTypes := make([]string, 0, len(types))
	for _, t := range types {
		comparisonTypes = append(comparisonTypes, string(t))
	}

	record := &models.WorkspaceComparison{
		ID:               bunx.NewUUIDv7(),
		ProjectID:        projectID,
		WorkspaceAID:     workspaceAID,
		WorkspaceBID:     workspaceBID,
		ComparisonTypes:  models.StringList(comparisonTypes),
		DifferencesCount: len(all),
		Differences:      payload,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert workspace comparison: %w", err)
	}
	return record, nil
}

func (s *Service) loadVariables(ctx context.Context, workspaceID string) (map[string]Variable, error) {
	var rows []*models.WorkspaceVariable
	err := s.db.NewSelect().Model(&rows).Where("workspace_id = ?", workspaceID).OrderExpr("key ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workspace variables: %w", err)
	}
	out := make(map[string]Variable, len(rows))
	for _, r := range rows {
		out[r.Key] = Variable{Key: r.Key, Value: r.Value.V, Sensitive: r.Sensitive}
	}
	return out, nil
}

// latestSnapshotView fetches the most recently imported snapshot for a
// workspace (by looking up its project/name and most recent
// terraform_states row) and the addresses of its resources.
func (s *Service) latestSnapshotView(ctx context.Context, workspaceID string) (*StateMetadata, []string, error) {
	ws := new(models.Workspace)
	if err := s.db.NewSelect().Model(ws).Where("id = ?", workspaceID).Scan(ctx); err != nil {
		return nil, nil, fmt.Errorf("load workspace: %w", err)
	}

	snapshot := new(models.StateSnapshot)
	err := s.db.NewSelect().
		Model(snapshot).
		ExcludeColumn("canonical_json").
		Where("project_id = ?", ws.ProjectID).
		Where("workspace = ?", ws.Name).
		OrderExpr("imported_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("load latest snapshot: %w", err)
	}

	var addresses []string
	err = s.db.NewSelect().
		Model((*models.ResourceInstance)(nil)).
		Column("address").
		Where("snapshot_id = ?", snapshot.ID).
		Scan(ctx, &addresses)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot resource addresses: %w", err)
	}

	meta := &StateMetadata{
		BackendType:      snapshot.BackendType,
		TerraformVersion: snapshot.TerraformVersion,
		Lineage:          snapshot.Lineage,
		Serial:           snapshot.Serial,
	}
	return meta, addresses, nil
}

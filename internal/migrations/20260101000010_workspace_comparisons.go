package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000010, down20260101000010)
}

func up20260101000010(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating workspace_comparisons table...")
	q := db.NewCreateTable().Model((*models.WorkspaceComparison)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(workspace_a_id) REFERENCES workspaces(id) ON DELETE CASCADE`)
		q = q.ForeignKey(`(workspace_b_id) REFERENCES workspaces(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create workspace_comparisons table: %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE workspace_comparisons ADD CONSTRAINT fk_workspace_comparisons_workspace_a_id FOREIGN KEY (workspace_a_id) REFERENCES workspaces(id) ON DELETE CASCADE`); err != nil {
			return fmt.Errorf("fk workspace_comparisons.workspace_a_id: %w", err)
		}
		if _, err := db.Exec(`ALTER TABLE workspace_comparisons ADD CONSTRAINT fk_workspace_comparisons_workspace_b_id FOREIGN KEY (workspace_b_id) REFERENCES workspaces(id) ON DELETE CASCADE`); err != nil {
			return fmt.Errorf("fk workspace_comparisons.workspace_b_id: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000010(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping workspace_comparisons table...")
	if _, err := db.NewDropTable().Model((*models.WorkspaceComparison)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop workspace_comparisons table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

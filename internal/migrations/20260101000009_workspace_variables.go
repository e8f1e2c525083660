package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000009, down20260101000009)
}

func up20260101000009(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating workspace_variables table...")
	q := db.NewCreateTable().Model((*models.WorkspaceVariable)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create workspace_variables table: %w", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_workspace_variables_workspace_key ON workspace_variables(workspace_id, key)`); err != nil {
		return fmt.Errorf("index workspace_variables.(workspace_id, key): %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE workspace_variables ADD CONSTRAINT fk_workspace_variables_workspace_id FOREIGN KEY (workspace_id) REFERENCES workspaces(id) ON DELETE CASCADE`); err != nil {
			return fmt.Errorf("fk workspace_variables.workspace_id: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000009(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping workspace_variables table...")
	if _, err := db.NewDropTable().Model((*models.WorkspaceVariable)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop workspace_variables table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

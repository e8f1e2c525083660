package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000008, down20260101000008)
}

func up20260101000008(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating workspaces table...")
	if _, err := db.NewCreateTable().Model((*models.Workspace)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create workspaces table: %w", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_workspaces_project_name ON workspaces(project_id, name)`); err != nil {
		return fmt.Errorf("index workspaces.(project_id, name): %w", err)
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000008(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping workspaces table...")
	if _, err := db.NewDropTable().Model((*models.Workspace)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop workspaces table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

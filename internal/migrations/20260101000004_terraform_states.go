package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000004, down20260101000004)
}

func up20260101000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating terraform_states table...")
	if _, err := db.NewCreateTable().Model((*models.StateSnapshot)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create terraform_states table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_terraform_states_project_workspace ON terraform_states(project_id, workspace)`); err != nil {
		return fmt.Errorf("index terraform_states.(project_id, workspace): %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_terraform_states_imported_at ON terraform_states(imported_at)`); err != nil {
		return fmt.Errorf("index terraform_states.imported_at: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000004(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping terraform_states table...")
	if _, err := db.NewDropTable().Model((*models.StateSnapshot)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop terraform_states table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

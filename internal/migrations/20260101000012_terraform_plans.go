package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000012, down20260101000012)
}

func up20260101000012(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating terraform_plans table...")
	q := db.NewCreateTable().Model((*models.TerraformPlan)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(snapshot_id) REFERENCES terraform_states(id) ON DELETE SET NULL`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create terraform_plans table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_terraform_plans_project_workspace ON terraform_plans(project_id, workspace)`); err != nil {
		return fmt.Errorf("index terraform_plans.(project_id, workspace): %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE terraform_plans ADD CONSTRAINT fk_terraform_plans_snapshot_id FOREIGN KEY (snapshot_id) REFERENCES terraform_states(id) ON DELETE SET NULL`); err != nil {
			return fmt.Errorf("fk terraform_plans.snapshot_id: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000012(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping terraform_plans table...")
	if _, err := db.NewDropTable().Model((*models.TerraformPlan)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop terraform_plans table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

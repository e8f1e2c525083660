package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000006, down20260101000006)
}

func up20260101000006(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating terraform_state_outputs table...")
	q := db.NewCreateTable().Model((*models.Output)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(snapshot_id) REFERENCES terraform_states(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create terraform_state_outputs table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_terraform_state_outputs_snapshot_id ON terraform_state_outputs(snapshot_id)`); err != nil {
		return fmt.Errorf("index terraform_state_outputs.snapshot_id: %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE terraform_state_outputs ADD CONSTRAINT fk_terraform_state_outputs_snapshot_id FOREIGN KEY (snapshot_id) REFERENCES terraform_states(id) ON DELETE CASCADE`); err != nil {
			return fmt.Errorf("fk terraform_state_outputs.snapshot_id: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000006(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping terraform_state_outputs table...")
	if _, err := db.NewDropTable().Model((*models.Output)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop terraform_state_outputs table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000007, down20260101000007)
}

func up20260101000007(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating drift_detections table...")
	q := db.NewCreateTable().Model((*models.DriftDetection)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(snapshot_id) REFERENCES terraform_states(id) ON DELETE SET NULL`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create drift_detections table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_drift_detections_project_workspace ON drift_detections(project_id, workspace)`); err != nil {
		return fmt.Errorf("index drift_detections.(project_id, workspace): %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE drift_detections ADD CONSTRAINT fk_drift_detections_snapshot_id FOREIGN KEY (snapshot_id) REFERENCES terraform_states(id) ON DELETE SET NULL`); err != nil {
			return fmt.Errorf("fk drift_detections.snapshot_id: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000007(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping drift_detections table...")
	if _, err := db.NewDropTable().Model((*models.DriftDetection)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop drift_detections table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

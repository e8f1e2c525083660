package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000003, down20260101000003)
}

func up20260101000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating auth_audit_events table...")
	q := db.NewCreateTable().Model((*models.AuthAuditEvent)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE SET NULL`)
		q = q.ForeignKey(`(session_id) REFERENCES auth_refresh_sessions(id) ON DELETE SET NULL`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create auth_audit_events table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_auth_audit_events_user_id ON auth_audit_events(user_id)`); err != nil {
		return fmt.Errorf("index auth_audit_events.user_id: %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE auth_audit_events ADD CONSTRAINT fk_auth_audit_events_user_id FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL`); err != nil {
			return fmt.Errorf("fk auth_audit_events.user_id: %w", err)
		}
		if _, err := db.Exec(`ALTER TABLE auth_audit_events ADD CONSTRAINT fk_auth_audit_events_session_id FOREIGN KEY (session_id) REFERENCES auth_refresh_sessions(id) ON DELETE SET NULL`); err != nil {
			return fmt.Errorf("fk auth_audit_events.session_id: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000003(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping auth_audit_events table...")
	if _, err := db.NewDropTable().Model((*models.AuthAuditEvent)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop auth_audit_events table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

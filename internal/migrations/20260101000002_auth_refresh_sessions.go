package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000002, down20260101000002)
}

func up20260101000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating auth_refresh_sessions table...")
	q := db.NewCreateTable().Model((*models.RefreshSession)(nil)).IfNotExists()
	if IsSQLite(db) {
		q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create auth_refresh_sessions table: %w", err)
	}

	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_auth_refresh_sessions_token_hash ON auth_refresh_sessions(token_hash)`); err != nil {
		return fmt.Errorf("index auth_refresh_sessions.token_hash: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_auth_refresh_sessions_family_id ON auth_refresh_sessions(family_id)`); err != nil {
		return fmt.Errorf("index auth_refresh_sessions.family_id: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_auth_refresh_sessions_user_id ON auth_refresh_sessions(user_id)`); err != nil {
		return fmt.Errorf("index auth_refresh_sessions.user_id: %w", err)
	}

	if IsPostgreSQL(db) {
		if _, err := db.Exec(`ALTER TABLE auth_refresh_sessions ADD CONSTRAINT fk_auth_refresh_sessions_user_id FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`); err != nil {
			return fmt.Errorf("fk auth_refresh_sessions.user_id: %w", err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping auth_refresh_sessions table...")
	if _, err := db.NewDropTable().Model((*models.RefreshSession)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop auth_refresh_sessions table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

package migrations

import (
	"context"
	"fmt"

	"github.com/ilyafedotov-ops/tfstatectl/internal/authz"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authz/bunadapter"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up20260101000011, down20260101000011)
}

func up20260101000011(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating authz_policies table...")
	if _, err := db.NewCreateTable().Model((*bunadapter.Rule)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create authz_policies table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] seeding default authz policies...")
	for _, rule := range authz.DefaultPolicies() {
		row := &bunadapter.Rule{Ptype: "p", V0: rule[0], V1: rule[1], V2: rule[2]}
		if _, err := db.NewInsert().Model(row).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("seed authz policy %v: %w", rule, err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down20260101000011(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping authz_policies table...")
	if _, err := db.NewDropTable().Model((*bunadapter.Rule)(nil)).IfExists().Exec(ctx); err != nil {
		return fmt.Errorf("drop authz_policies table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

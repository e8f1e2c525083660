// Package bunadapter persists Casbin policy rows through the same *bun.DB
// handle the State and Auth engines use, instead of a standalone policy file.
//
// Forked from the teacher's casbin/bun integration (itself adapted from
// github.com/msales/casbin-bun-adapter) and trimmed to the five methods the
// casbin/v2 persist.Adapter interface actually requires.
package bunadapter

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"
)

// Rule is one row of a Casbin policy: a scope (V0) granted an action (V2) on
// a resource (V1). Ptype is always "p" — this store carries no role
// grouping, since scopes are already the finest-grained subject this system
// authorizes against.
type Rule struct {
	bun.BaseModel `bun:"table:authz_policies,alias:az"`

	Ptype string `bun:",pk,type:varchar(8),notnull"`
	V0    string `bun:",pk,type:varchar(64),notnull"`
	V1    string `bun:",pk,type:varchar(64),notnull"`
	V2    string `bun:",pk,type:varchar(64),notnull"`
}

// Adapter implements persist.Adapter against authz_policies.
type Adapter struct {
	db *bun.DB
}

// NewAdapter wraps an existing bun.DB connection pool.
func NewAdapter(db *bun.DB) *Adapter {
	return &Adapter{db: db}
}

// LoadPolicy loads every row into the in-memory Casbin model.
func (a *Adapter) LoadPolicy(m model.Model) error {
	var rules []*Rule
	if err := a.db.NewSelect().Model(&rules).Scan(context.Background()); err != nil {
		return fmt.Errorf("load authz policy: %w", err)
	}
	for _, r := range rules {
		_ = m.AddPolicy("p", r.Ptype, []string{r.V0, r.V1, r.V2})
	}
	return nil
}

// SavePolicy replaces every stored row with the model's current policy set.
func (a *Adapter) SavePolicy(m model.Model) error {
	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewTruncateTable().Model((*Rule)(nil)).Exec(ctx); err != nil {
			return err
		}
		for ptype, assertion := range m["p"] {
			for _, rule := range assertion.Policy {
				if _, err := tx.NewInsert().Model(ruleFrom(ptype, rule)).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// AddPolicy persists one new rule.
func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	_, err := a.db.NewInsert().Model(ruleFrom(ptype, rule)).On("CONFLICT DO NOTHING").Exec(context.Background())
	if err != nil {
		return fmt.Errorf("add authz policy: %w", err)
	}
	return nil
}

// RemovePolicy deletes a single matching rule.
func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	r := ruleFrom(ptype, rule)
	_, err := a.db.NewDelete().Model(r).
		Where("ptype = ? AND v0 = ? AND v1 = ? AND v2 = ?", r.Ptype, r.V0, r.V1, r.V2).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("remove authz policy: %w", err)
	}
	return nil
}

// RemoveFilteredPolicy deletes every rule matching the given field values,
// skipping fields the caller left blank.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	q := a.db.NewDelete().Model((*Rule)(nil)).Where("ptype = ?", ptype)
	cols := []string{"v0", "v1", "v2"}
	for i, v := range fieldValues {
		col := fieldIndex + i
		if col < 0 || col >= len(cols) || v == "" {
			continue
		}
		q = q.Where(cols[col]+" = ?", v)
	}
	if _, err := q.Exec(context.Background()); err != nil {
		return fmt.Errorf("remove filtered authz policy: %w", err)
	}
	return nil
}

func ruleFrom(ptype string, rule []string) *Rule {
	r := &Rule{Ptype: ptype}
	if len(rule) > 0 {
		r.V0 = rule[0]
	}
	if len(rule) > 1 {
		r.V1 = rule[1]
	}
	if len(rule) > 2 {
		r.V2 = rule[2]
	}
	return r
}

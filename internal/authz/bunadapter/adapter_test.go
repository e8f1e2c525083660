package bunadapter

import (
	"context"
	"testing"

	"github.com/casbin/casbin/v2/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/migrations"
)

const aclModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

func newMigratedAdapter(t *testing.T) *Adapter {
	t.Helper()
	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	ctx := context.Background()
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return NewAdapter(db)
}

func TestAdapterAddAndLoadPolicy(t *testing.T) {
	adapter := newMigratedAdapter(t)
	require.NoError(t, adapter.AddPolicy("p", "p", []string{"custom:scope", "widgets", "read"}))

	m, err := model.NewModelFromString(aclModel)
	require.NoError(t, err)
	require.NoError(t, adapter.LoadPolicy(m))

	found := false
	for _, rule := range m["p"]["p"].Policy {
		if len(rule) == 3 && rule[0] == "custom:scope" && rule[1] == "widgets" && rule[2] == "read" {
			found = true
		}
	}
	assert.True(t, found, "the seeded default policies plus the newly added custom rule should load")
}

func TestAdapterAddPolicyIsIdempotent(t *testing.T) {
	adapter := newMigratedAdapter(t)
	require.NoError(t, adapter.AddPolicy("p", "p", []string{"state:read", "state", "read"}))
	require.NoError(t, adapter.AddPolicy("p", "p", []string{"state:read", "state", "read"}), "re-adding an identical rule hits ON CONFLICT DO NOTHING")
}

func TestAdapterRemovePolicy(t *testing.T) {
	adapter := newMigratedAdapter(t)
	require.NoError(t, adapter.AddPolicy("p", "p", []string{"temp:scope", "widgets", "write"}))
	require.NoError(t, adapter.RemovePolicy("p", "p", []string{"temp:scope", "widgets", "write"}))

	m, err := model.NewModelFromString(aclModel)
	require.NoError(t, err)
	require.NoError(t, adapter.LoadPolicy(m))

	for _, rule := range m["p"]["p"].Policy {
		assert.NotEqual(t, "temp:scope", rule[0])
	}
}

func TestAdapterRemoveFilteredPolicyMatchesOnSubjectOnly(t *testing.T) {
	adapter := newMigratedAdapter(t)
	require.NoError(t, adapter.AddPolicy("p", "p", []string{"scoped:one", "widgets", "read"}))
	require.NoError(t, adapter.AddPolicy("p", "p", []string{"scoped:one", "widgets", "write"}))
	require.NoError(t, adapter.RemoveFilteredPolicy("p", "p", 0, "scoped:one"))

	m, err := model.NewModelFromString(aclModel)
	require.NoError(t, err)
	require.NoError(t, adapter.LoadPolicy(m))

	for _, rule := range m["p"]["p"].Policy {
		assert.NotEqual(t, "scoped:one", rule[0])
	}
}

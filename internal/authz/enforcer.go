// Package authz maps a caller's granted scopes onto resource/action
// permissions using a Casbin ACL enforcer backed by the same database the
// rest of the system uses.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"

	"github.com/ilyafedotov-ops/tfstatectl/internal/authz/bunadapter"
)

// aclModel is a plain Casbin ACL: a rule grants one scope permission to
// perform one action on one resource group. There is no role indirection —
// scopes themselves are the subject.
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

// Enforcer wraps a casbin.Enforcer with the scope-oriented policy shape this
// system uses: Allowed(scopes, resource, action) replaces the single-subject
// Enforce call with an any-of check across every scope the caller holds.
type Enforcer struct {
	e *casbin.Enforcer
}

// New builds an Enforcer whose policy rows live in authz_policies.
func New(db *bun.DB) (*Enforcer, error) {
	m, err := model.NewModelFromString(aclModel)
	if err != nil {
		return nil, fmt.Errorf("parse authz model: %w", err)
	}
	e, err := casbin.NewEnforcer(m, bunadapter.NewAdapter(db))
	if err != nil {
		return nil, fmt.Errorf("create authz enforcer: %w", err)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Allowed reports whether any of the caller's scopes grants action on
// resource.
func (n *Enforcer) Allowed(scopes []string, resource, action string) bool {
	for _, scope := range scopes {
		ok, err := n.e.Enforce(scope, resource, action)
		if err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultPolicies seeds the ACL rows the HTTP surface depends on. Called
// once from the migration that creates authz_policies.
func DefaultPolicies() [][]string {
	return [][]string{
		{"console:read", "auth", "read"},
		{"console:write", "auth", "write"},
		{"state:read", "state", "read"},
		{"state:write", "state", "write"},
	}
}

package server

import (
	"context"
	"net/http"
)

type principalKey struct{}

// Principal is the authenticated caller attached to a request's context by
// requireAuth.
type Principal struct {
	UserID    string
	SessionID string
	FamilyID  string
	Scopes    []string
}

func withPrincipal(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
}

func principalFrom(r *http.Request) (*Principal, bool) {
	p, ok := r.Context().Value(principalKey{}).(*Principal)
	return p, ok
}

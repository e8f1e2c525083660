package server

import (
	"net/http"
	"strings"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authz"
)

// requireAuth decodes the bearer access token, attaches a Principal to the
// request context, and rejects the request with 401 if the token is
// missing, expired, or malformed. It does not consult the enforcer —
// requireScope does that separately so read-only introspection endpoints
// can inspect the principal before deciding which scope to demand.
func requireAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
				return
			}
			claims, err := tokens.DecodeAccess(strings.TrimPrefix(header, prefix))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid access token"})
				return
			}
			principal := &Principal{
				UserID:    claims.Subject,
				SessionID: claims.SID,
				FamilyID:  claims.Fam,
				Scopes:    claims.Scopes,
			}
			next.ServeHTTP(w, withPrincipal(r, principal))
		})
	}
}

// requireScope wraps a handler that has already passed requireAuth and
// denies the request with 403 unless the principal's scopes grant action on
// resource via the enforcer.
func requireScope(enforcer *authz.Enforcer, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := principalFrom(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
				return
			}
			if !enforcer.Allowed(principal.Scopes, resource, action) {
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "insufficient scope"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

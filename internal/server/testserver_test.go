package server

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authrepo"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authz"
	"github.com/ilyafedotov-ops/tfstatectl/internal/config"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/models"
	"github.com/ilyafedotov-ops/tfstatectl/internal/migrations"
	"github.com/ilyafedotov-ops/tfstatectl/internal/planstore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/statestore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/workspace"
)

// testEnv wires a full chi.Router against a migrated in-memory SQLite
// database, the same shape NewRouter assembles in production. Handler tests
// drive it end to end instead of mocking each collaborator, so a contract
// break like an undocumented request field shows up as a failing HTTP call.
type testEnv struct {
	Router   chi.Router
	DB       *bun.DB
	AuthRepo *authrepo.Repository
	Tokens   *auth.TokenService
	Cookie   config.CookieConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	ctx := context.Background()
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	enforcer, err := authz.New(db)
	require.NoError(t, err)

	authRepo := authrepo.New(db)
	tokens := auth.NewTokenService(auth.TokenServiceConfig{
		AccessSecret:    "test-access-secret",
		RefreshSecret:   "test-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "tfstatectl-test",
		Audience:        "tfstatectl-test",
	}, authRepo)
	limiter := auth.NewRateLimiter(5, time.Minute, 5*time.Minute)

	cookie := config.CookieConfig{RefreshCookieName: "statectl_refresh_token", SameSite: "lax"}

	router := NewRouter(RouterOptions{
		Tokens:           tokens,
		Limiter:          limiter,
		AuthRepo:         authRepo,
		Enforcer:         enforcer,
		StateService:     statestore.NewService(statestore.NewBunRepository(db)),
		WorkspaceService: workspace.NewService(db),
		PlanService:      planstore.NewService(db),
		Cookie:           cookie,
	})

	return &testEnv{Router: router, DB: db, AuthRepo: authRepo, Tokens: tokens, Cookie: cookie}
}

// createUser inserts an active user with the given scopes directly through
// the repository, bypassing the registration surface the HTTP API doesn't
// expose.
func (e *testEnv) createUser(t *testing.T, email, password string, scopes ...string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := e.AuthRepo.CreateUser(context.Background(), email, hash, scopes, true, false)
	require.NoError(t, err)
	return user
}

// issueBundle mints an access/refresh bundle for user the way /auth/token
// does, without going through rate limiting or password verification.
func (e *testEnv) issueBundle(t *testing.T, user *models.User) *auth.Bundle {
	t.Helper()
	bundle, err := e.Tokens.Issue(context.Background(), user, []string(user.Scopes), nil, nil)
	require.NoError(t, err)
	return bundle
}

var defaultScopes = []string{"console:read", "console:write", "state:read", "state:write"}

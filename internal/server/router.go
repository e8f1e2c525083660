package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authrepo"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authz"
	"github.com/ilyafedotov-ops/tfstatectl/internal/config"
	"github.com/ilyafedotov-ops/tfstatectl/internal/planstore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/statestore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/workspace"
)

// RouterOptions controls the construction of the HTTP router. The zero
// value is not valid — Tokens, Limiter, AuthRepo, Enforcer, StateService,
// WorkspaceService, and PlanService must all be supplied.
type RouterOptions struct {
	Tokens           *auth.TokenService
	Limiter          *auth.RateLimiter
	AuthRepo         *authrepo.Repository
	Enforcer         *authz.Enforcer
	StateService     *statestore.Service
	WorkspaceService *workspace.Service
	PlanService      *planstore.Service
	Cookie           config.CookieConfig
	CORSOptions      *cors.Options
	Middleware       []func(http.Handler) http.Handler
}

// DefaultCORSOptions returns the development CORS policy — same-origin
// browser consoles plus a local dev server, with credentials enabled so the
// refresh cookie round-trips.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Refresh-Token-CSRF"},
		ExposedHeaders:   []string{"X-Refresh-Token-CSRF", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router exposing the Auth and State HTTP
// surfaces (spec §6.1, §6.2) behind shared request logging, panic recovery,
// and CORS middleware.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/health", healthHandler)

	authHandlers := &AuthHandlers{Tokens: opts.Tokens, Limiter: opts.Limiter, Repo: opts.AuthRepo, Cookie: opts.Cookie}
	authn := requireAuth(opts.Tokens)
	readConsole := requireScope(opts.Enforcer, "auth", "read")
	writeConsole := requireScope(opts.Enforcer, "auth", "write")

	r.Route("/auth", func(authRoutes chi.Router) {
		authRoutes.Post("/token", authHandlers.Token)
		authRoutes.Post("/refresh", authHandlers.Refresh)
		authRoutes.Post("/logout", authHandlers.Logout)

		authRoutes.With(authn, readConsole).Get("/me", authHandlers.Me)
		authRoutes.With(authn, writeConsole).Put("/me", authHandlers.UpdateMe)
		authRoutes.With(authn, writeConsole).Post("/me/password", authHandlers.ChangePassword)
		authRoutes.With(authn, readConsole).Get("/sessions", authHandlers.ListSessions)
		authRoutes.With(authn, writeConsole).Delete("/sessions/{id}", authHandlers.RevokeSession)
		authRoutes.With(authn, readConsole).Get("/events", authHandlers.ListEvents)
	})

	stateHandlers := &StateHandlers{Service: opts.StateService, Plans: opts.PlanService}
	readState := requireScope(opts.Enforcer, "state", "read")
	writeState := requireScope(opts.Enforcer, "state", "write")

	r.Group(func(state chi.Router) {
		state.Use(authn)
		state.With(writeState).Post("/state/import", stateHandlers.Import)
		state.With(readState).Get("/state", stateHandlers.List)
		state.With(readState).Get("/state/{id}", stateHandlers.Get)
		state.With(readState).Get("/state/{id}/resources", stateHandlers.Resources)
		state.With(readState).Get("/state/{id}/outputs", stateHandlers.Outputs)
		state.With(readState).Get("/state/{id}/export", stateHandlers.Export)
		state.With(writeState).Post("/state/{id}/drift/plan", stateHandlers.DriftPlan)
		state.With(writeState).Post("/state/{id}/operations/remove", stateHandlers.RemoveOperation)
		state.With(writeState).Post("/state/{id}/operations/move", stateHandlers.MoveOperation)
	})

	workspaceHandlers := &WorkspaceHandlers{Service: opts.WorkspaceService}

	r.Group(func(ws chi.Router) {
		ws.Use(authn)
		ws.With(writeState).Post("/state/workspaces", workspaceHandlers.CreateWorkspace)
		ws.With(readState).Get("/state/workspaces", workspaceHandlers.ListWorkspaces)
		ws.With(readState).Post("/state/workspaces/compare", workspaceHandlers.Compare)
		ws.With(writeState).Put("/state/workspaces/{id}/variables", workspaceHandlers.SetVariable)
		ws.With(readState).Get("/state/workspaces/{id}/variables", workspaceHandlers.ListVariables)
	})

	planHandlers := &PlanHandlers{Service: opts.PlanService}

	r.Group(func(p chi.Router) {
		p.Use(authn)
		p.With(writeState).Post("/state/plans", planHandlers.Submit)
		p.With(readState).Get("/state/plans", planHandlers.List)
		p.With(readState).Get("/state/plans/{id}", planHandlers.Get)
	})

	return r
}

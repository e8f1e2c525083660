package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authrepo"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authz"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
	"github.com/ilyafedotov-ops/tfstatectl/internal/planstore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/server"
	"github.com/ilyafedotov-ops/tfstatectl/internal/statestore"
	"github.com/ilyafedotov-ops/tfstatectl/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the state control plane HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer bunx.Close(db)
		log.Printf("connected to database")

		authRepo := authrepo.New(db)
		tokens := auth.NewTokenService(auth.TokenServiceConfig{
			AccessSecret:    cfg.Auth.AccessSecret,
			RefreshSecret:   cfg.Auth.RefreshSecret,
			AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
			Issuer:          cfg.Auth.Issuer,
			Audience:        cfg.Auth.Audience,
		}, authRepo)
		limiter := auth.NewRateLimiter(5, 60*time.Second, 300*time.Second)

		enforcer, err := authz.New(db)
		if err != nil {
			return fmt.Errorf("configure authorization enforcer: %w", err)
		}

		stateRepo := statestore.NewBunRepository(db)
		stateService := statestore.NewService(stateRepo)
		workspaceService := workspace.NewService(db)
		planService := planstore.NewService(db)

		r := server.NewRouter(server.RouterOptions{
			Tokens:           tokens,
			Limiter:          limiter,
			AuthRepo:         authRepo,
			Enforcer:         enforcer,
			StateService:     stateService,
			WorkspaceService: workspaceService,
			PlanService:      planService,
			Cookie:           cfg.Cookie,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("starting server on %s", cfg.ServerAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			log.Printf("received signal %v, shutting down gracefully", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			log.Printf("server stopped")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

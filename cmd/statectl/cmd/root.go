package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ilyafedotov-ops/tfstatectl/cmd/statectl/cmd/users"
	"github.com/ilyafedotov-ops/tfstatectl/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "statectl",
	Short: "Terraform state control plane",
	Long:  `statectl serves the Auth and State HTTP engines and manages their database schema and users.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.AddCommand(users.UsersCmd)
}

// GetConfig returns the configuration loaded by the root command's
// PersistentPreRunE. Subcommand packages outside cmd/statectl/cmd can't see
// the unexported cfg var, so users.UsersCmd calls config.Load() itself.
func GetConfig() *config.Config { return cfg }

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package users implements the statectl user-management subcommands.
package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command the root wires in.
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage control plane users",
}

func init() {
	UsersCmd.AddCommand(createCmd)
}

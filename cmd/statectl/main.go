// Command statectl runs the Terraform state control plane: the HTTP Auth
// and State engines, plus database migration and user management
// subcommands.
package main

import "github.com/ilyafedotov-ops/tfstatectl/cmd/statectl/cmd"

func main() {
	cmd.Execute()
}

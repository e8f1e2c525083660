package users

import (
	"bufio"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ilyafedotov-ops/tfstatectl/internal/auth"
	"github.com/ilyafedotov-ops/tfstatectl/internal/authrepo"
	"github.com/ilyafedotov-ops/tfstatectl/internal/config"
	"github.com/ilyafedotov-ops/tfstatectl/internal/db/bunx"
)

var (
	emailFlag     string
	passwordFlag  string
	scopesInput   []string
	superuserFlag bool
	stdinFlag     bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}
		if _, err := mail.ParseAddress(emailFlag); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer bunx.Close(db)

		hash, err := auth.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		repo := authrepo.New(db)
		user, err := repo.CreateUser(cmd.Context(), emailFlag, hash, scopesInput, true, superuserFlag)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("User ID: %s\n", user.ID)
		fmt.Printf("Email: %s\n", user.Email)
		fmt.Printf("Scopes: %s\n", strings.Join(scopesInput, ", "))
		fmt.Println("----------------------------------------")
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&emailFlag, "email", "", "User email address")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "User password")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin")
	createCmd.Flags().StringSliceVar(&scopesInput, "scope", nil, "Scope to grant (repeatable)")
	createCmd.Flags().BoolVar(&superuserFlag, "superuser", false, "Mark the user as a superuser")
}

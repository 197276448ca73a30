package main

import (
	"fmt"
	"os"

	"org-task-management-api/internal/auth"
	"org-task-management-api/internal/config"
	"org-task-management-api/internal/database"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Organization task management API",
		RunE:  runServe,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(superuserCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config and opens the database shared by every command.
func setup() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	auth.Configure(auth.Settings{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	})
	if err := database.InitDB(cfg.Database); err != nil {
		return nil, err
	}
	return cfg, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			// InitDB migrates on open
			_, err := setup()
			return err
		},
	}
}

func superuserCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "superuser <email>",
		Short: "Grant or revoke the superuser flag of an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(); err != nil {
				return err
			}
			u, err := newStore().SetSuperuser(cmd.Context(), args[0], !revoke)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s superuser=%t\n", u.Email, u.Superuser)
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the flag instead of granting it")
	return cmd
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/postdesk"
)

func adminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var email, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an admin or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			cfg := postdesk.LoadConfig()
			store, err := postdesk.NewStore(cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := postdesk.AddAdmin(cmd.Context(), store, email, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s saved\n", email)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "admin email")
	add.Flags().StringVar(&password, "password", "", "admin password (at least 6 characters)")

	cmd.AddCommand(add)
	return cmd
}

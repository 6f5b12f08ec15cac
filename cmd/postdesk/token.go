package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/postdesk"
)

func tokenCommand() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for an admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			cfg := postdesk.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.TokenTTL
			}

			store, err := postdesk.NewStore(cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()
			admin, err := store.AdminByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}

			token, exp, err := postdesk.NewTokenIssuer(cfg.SessionSecret, ttl).Issue(postdesk.Principal{
				Email: admin.Email,
				Role:  admin.Role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to TOKEN_TTL)")
	return cmd
}

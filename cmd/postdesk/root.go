package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "postdesk",
	Short:         "A blog CMS with a content API and in-browser editor",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute loads .env and runs the root command.
func Execute() error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "postdesk %s\n", version)
		},
	})
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(adminCommand())
	rootCmd.AddCommand(tokenCommand())
	rootCmd.AddCommand(pushCommand())
}

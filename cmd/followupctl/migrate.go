package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(withEnv envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			if err := e.repos.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations executed successfully.")
			return nil
		}),
	}
}

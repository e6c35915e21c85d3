package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newImportCommand(withEnv envRunner) *cobra.Command {
	var csvPath, username string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-create follow-ups from a CSV file for a user's clinic",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("CSV file %q not found: %w", csvPath, err)
			}
			defer f.Close()

			summary, err := e.svc.Importer.Import(cmd.Context(), f, username)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, skip := range summary.Skips {
				fmt.Fprintf(out, "Row %d: Skipped - %s\n", skip.Row, skip.Reason)
			}
			fmt.Fprintln(out, "----------------------")
			fmt.Fprintf(out, "Import Complete for %s.\n", summary.Clinic.Name)
			fmt.Fprintf(out, "Created: %d\n", summary.Created)
			fmt.Fprintf(out, "Skipped: %d\n", summary.Skipped)
			return nil
		}),
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the CSV file")
	cmd.Flags().StringVar(&username, "username", "", "user the follow-ups are created for")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

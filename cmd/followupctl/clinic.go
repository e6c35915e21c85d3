package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClinicCommand(withEnv envRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Manage clinics",
	}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a clinic and print its code",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			clinic, err := e.svc.Clinics.CreateClinic(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created clinic %q (id %s, code %s)\n", clinic.Name, clinic.ID, clinic.ClinicCode)
			return nil
		}),
	}
	create.Flags().StringVar(&name, "name", "", "clinic name")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

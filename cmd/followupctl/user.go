package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository"
)

func newUserCommand(withEnv envRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff and operator accounts",
	}

	var req model.CreateUserRequest
	var clinicCode string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user, optionally assigned to a clinic",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			if clinicCode != "" {
				clinic, err := e.repos.Clinics.GetByCode(cmd.Context(), clinicCode)
				if err != nil {
					if errors.Is(err, repository.ErrNotFound) {
						return fmt.Errorf("no clinic with code %q", clinicCode)
					}
					return err
				}
				req.ClinicID = &clinic.ID
			}

			user, err := e.svc.Users.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (id %s)\n", user.Role, user.Username, user.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&req.Username, "username", "", "login name")
	create.Flags().StringVar(&req.Password, "password", "", "initial password")
	create.Flags().StringVar(&req.Email, "email", "", "email address")
	create.Flags().StringVar(&req.Role, "role", model.RoleStaff, "staff or operator")
	create.Flags().StringVar(&clinicCode, "clinic-code", "", "assign the user to the clinic with this code")
	_ = create.MarkFlagRequired("username")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

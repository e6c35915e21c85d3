package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/followup-api/internal/app"
	"github.com/jwalitptl/followup-api/internal/config"
	"github.com/jwalitptl/followup-api/pkg/logger"
)

// env is everything a subcommand needs.
type env struct {
	cfg   *config.Config
	repos *app.Repositories
	svc   *app.Services
}

func (e *env) Close() error {
	return e.repos.Close()
}

type openFunc func(ctx context.Context, cfgPath string) (*env, error)

func openEnv(ctx context.Context, cfgPath string) (*env, error) {
	cfg, err := config.LoadConfigFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	repos, err := app.OpenRepositories(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Log.ToLoggerConfig()).With("followupctl")
	return &env{
		cfg:   cfg,
		repos: repos,
		svc:   app.NewServices(cfg, repos, nil, log),
	}, nil
}

func newRootCommand(open openFunc) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "followupctl",
		Short:         "Operator tooling for the clinic follow-up tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default: search ., ./configs, /app, /app/configs)")

	withEnv := func(run func(cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			e, err := open(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer e.Close()
			return run(cmd, e)
		}
	}

	root.AddCommand(newMigrateCommand(withEnv))
	root.AddCommand(newClinicCommand(withEnv))
	root.AddCommand(newUserCommand(withEnv))
	root.AddCommand(newImportCommand(withEnv))

	return root
}

type envRunner func(run func(cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/bootstrap"
	"github.com/spec-kit/ticket-workflow/internal/commands"
	"github.com/spec-kit/ticket-workflow/internal/config"
	"github.com/spec-kit/ticket-workflow/internal/observability"
)

// Populated at build-time via -ldflags.
var version = "dev"

func main() {
	flags := &commands.Flags{}
	var logLevel string

	app := &cli.Command{
		Name:      "workflowctl",
		Usage:     "Operate the ticket workflow store",
		UsageText: "workflowctl [global options] command [command options]",
		Description: `Administrative commands for the ticket workflow.

Storage is selected like the API server: POSTGRES_DSN connects to postgres,
otherwise WORKFLOW_SEED_FILE loads an in-memory store.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("WORKFLOWCTL_LOG_LEVEL"),
				Value:       "warn",
				Destination: &logLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load()
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			cfg.Logger.Level = logLevel
			cfg.Logger.Output = "stderr"

			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}

			backend, err := bootstrap.OpenBackend(ctx, cfg, logger, false)
			if err != nil {
				return ctx, err
			}
			services, err := bootstrap.NewServices(cfg, backend, logger)
			if err != nil {
				backend.Close()
				return ctx, err
			}

			flags.Config = cfg
			flags.Logger = logger
			flags.Backend = backend
			flags.Services = services
			flags.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			flags.Backend.Close()
			if flags.Logger != nil {
				_ = flags.Logger.Sync()
			}
			return nil
		},
	}

	commands.NewMigrateCmd(flags).Register(app)
	commands.NewMaintenanceCmd(flags).Register(app)
	commands.NewTransitionCmd(flags).Register(app)
	commands.NewTokenCmd(flags).Register(app)

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

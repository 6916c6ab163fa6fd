package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/spec-kit/ticket-workflow/internal/persistence"
)

// MigrateCmd applies SQL migrations to the configured database.
type MigrateCmd struct {
	flags *Flags
}

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd(flags *Flags) *MigrateCmd {
	return &MigrateCmd{flags: flags}
}

// Register adds the migrate command to the application.
func (cmd *MigrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "migrate",
		Usage:     "Apply database migrations",
		UsageText: "workflowctl migrate",
		Action:    cmd.run,
	})
	return app
}

func (cmd *MigrateCmd) run(ctx context.Context, c *cli.Command) error {
	b := cmd.flags.Backend
	if b == nil || !b.Postgres.Configured() {
		return errors.New("migrate requires POSTGRES_DSN")
	}
	if err := persistence.RunMigrations(ctx, b.Postgres.PoolHandle(), cmd.flags.Config.Postgres.MigrationsDir, cmd.flags.Logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "migrations applied")
	return nil
}

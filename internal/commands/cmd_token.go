package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// TokenCmd mints bearer tokens for the HTTP API.
type TokenCmd struct {
	flags *Flags

	label  string
	roleID int64
}

// NewTokenCmd creates the token command.
func NewTokenCmd(flags *Flags) *TokenCmd {
	return &TokenCmd{flags: flags}
}

// Register adds the token command to the application.
func (cmd *TokenCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "token",
		Usage:     "Issue a signed token for an actor",
		UsageText: "workflowctl token --label NAME --role ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "label",
				Usage:       "actor label recorded in history",
				Required:    true,
				Destination: &cmd.label,
			},
			&cli.Int64Flag{
				Name:        "role",
				Usage:       "role id carried by the token",
				Destination: &cmd.roleID,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *TokenCmd) run(_ context.Context, c *cli.Command) error {
	if cmd.flags.Tokens == nil {
		return errNotInitialized
	}
	if cmd.roleID < 0 {
		return errors.New("role must not be negative")
	}
	token, expiresAt, err := cmd.flags.Tokens.GenerateToken(domain.Actor{Label: cmd.label, RoleID: cmd.roleID})
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	out := c.Root().Writer
	_, _ = fmt.Fprintln(out, token)
	_, _ = fmt.Fprintf(out, "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

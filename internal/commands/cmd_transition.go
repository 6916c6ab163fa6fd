package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/service"
)

// TransitionCmd lists and applies ticket transitions from the shell.
type TransitionCmd struct {
	flags *Flags

	roleID       int64
	nextStatusID int64
	targetRoleID int64
	actor        string
}

// NewTransitionCmd creates the transitions and apply commands.
func NewTransitionCmd(flags *Flags) *TransitionCmd {
	return &TransitionCmd{flags: flags}
}

// Register adds transitions and apply to the application.
func (cmd *TransitionCmd) Register(app *cli.Command) *cli.Command {
	roleFlag := func() cli.Flag {
		return &cli.Int64Flag{
			Name:        "role",
			Usage:       "acting role id (0 acts without a role)",
			Destination: &cmd.roleID,
		}
	}
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "transitions",
			Usage:     "List transitions available on a ticket",
			UsageText: "workflowctl transitions <ticket-id> [--role ID]",
			Flags:     []cli.Flag{roleFlag()},
			Action:    cmd.runList,
		},
		&cli.Command{
			Name:      "apply",
			Usage:     "Move a ticket to another status",
			UsageText: "workflowctl apply <ticket-id> --next ID [--role ID] [--target-role ID] [--actor NAME]",
			Flags: []cli.Flag{
				roleFlag(),
				&cli.Int64Flag{
					Name:        "next",
					Usage:       "requested status id",
					Required:    true,
					Destination: &cmd.nextStatusID,
				},
				&cli.Int64Flag{
					Name:        "target-role",
					Usage:       "owning role override",
					Destination: &cmd.targetRoleID,
				},
				&cli.StringFlag{
					Name:        "actor",
					Usage:       "label recorded in history",
					Value:       domain.SystemActorLabel,
					Destination: &cmd.actor,
				},
			},
			Action: cmd.runApply,
		},
	)
	return app
}

func ticketArg(c *cli.Command) (int64, error) {
	raw := c.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("ticket id must be a positive integer")
	}
	return id, nil
}

func (cmd *TransitionCmd) runList(ctx context.Context, c *cli.Command) error {
	ticketID, err := ticketArg(c)
	if err != nil {
		return err
	}
	svc, err := cmd.flags.services()
	if err != nil {
		return err
	}
	available, err := svc.Transitions.AvailableTransitions(ctx, ticketID, cmd.roleID)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if len(available) == 0 {
		_, _ = fmt.Fprintln(out, "no transitions available")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RULE\tNEXT\tLABEL\tTARGET ROLE")
	for _, a := range available {
		_, _ = fmt.Fprintf(w, "%d\t%d %s\t%s\t%s\n", a.Rule.ID, a.Rule.NextStatusID, a.NextStatusName, a.Rule.ButtonLabel, a.TargetRoleName)
	}
	return w.Flush()
}

func (cmd *TransitionCmd) runApply(ctx context.Context, c *cli.Command) error {
	ticketID, err := ticketArg(c)
	if err != nil {
		return err
	}
	svc, err := cmd.flags.services()
	if err != nil {
		return err
	}
	result, err := svc.Transitions.Apply(ctx, service.ApplyRequest{
		TicketID:           ticketID,
		NextStatusID:       cmd.nextStatusID,
		ActorRoleID:        cmd.roleID,
		TargetRoleOverride: cmd.targetRoleID,
	}, cmd.actor)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "ticket %d: %s -> %s (history %d)\n",
		result.TicketID, result.OldStatusName, result.NewStatusName, result.HistoryID)
	return nil
}

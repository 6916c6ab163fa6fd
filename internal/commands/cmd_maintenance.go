package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

// MaintenanceCmd groups data-quality commands.
type MaintenanceCmd struct {
	flags *Flags

	// inconsistent flags
	limit      int
	jsonOutput bool
}

// NewMaintenanceCmd creates the maintenance commands.
func NewMaintenanceCmd(flags *Flags) *MaintenanceCmd {
	return &MaintenanceCmd{flags: flags}
}

// Register adds inconsistent and strip-label to the application.
func (cmd *MaintenanceCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "inconsistent",
			Usage:     "List tickets whose status, type or role no longer exists",
			UsageText: "workflowctl inconsistent [--limit N] [--json]",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:        "limit",
					Usage:       "maximum number of tickets to report",
					Value:       100,
					Destination: &cmd.limit,
				},
				&cli.BoolFlag{
					Name:        "json",
					Usage:       "output as JSON lines",
					Destination: &cmd.jsonOutput,
				},
			},
			Action: cmd.runInconsistent,
		},
		&cli.Command{
			Name:      "strip-label",
			Usage:     "Remove a substring from every transition button label",
			UsageText: "workflowctl strip-label <substring>",
			Description: `Deletes every occurrence of <substring> from transition rule labels and trims
the result. Rule ids, statuses and roles are left untouched.`,
			Action: cmd.runStripLabel,
		},
	)
	return app
}

type inconsistentLine struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	StatusID int64    `json:"status_id"`
	TypeID   int64    `json:"type_id"`
	RoleID   *int64   `json:"role_id"`
	Issues   []string `json:"issues"`
}

func (cmd *MaintenanceCmd) runInconsistent(ctx context.Context, c *cli.Command) error {
	svc, err := cmd.flags.services()
	if err != nil {
		return err
	}
	items, err := svc.Maintenance.InconsistentTickets(ctx, cmd.limit)
	if err != nil {
		return fmt.Errorf("list inconsistent tickets: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		for _, item := range items {
			issues := make([]string, 0, len(item.Issues))
			for _, issue := range item.Issues {
				issues = append(issues, string(issue))
			}
			line := inconsistentLine{
				ID:       item.Ticket.ID,
				Title:    item.Ticket.Title,
				StatusID: item.Ticket.StatusID,
				TypeID:   item.Ticket.TypeID,
				RoleID:   item.Ticket.RoleID,
				Issues:   issues,
			}
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("encode ticket: %w", err)
			}
		}
		return nil
	}

	if len(items) == 0 {
		_, _ = fmt.Fprintln(out, "no inconsistent tickets")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tISSUES")
	for _, item := range items {
		issues := make([]string, 0, len(item.Issues))
		for _, issue := range item.Issues {
			issues = append(issues, string(issue))
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", item.Ticket.ID, item.Ticket.Title, strings.Join(issues, ","))
	}
	return w.Flush()
}

func (cmd *MaintenanceCmd) runStripLabel(ctx context.Context, c *cli.Command) error {
	substring := c.Args().First()
	if substring == "" {
		return errors.New("usage: workflowctl strip-label <substring>")
	}
	svc, err := cmd.flags.services()
	if err != nil {
		return err
	}
	n, err := svc.Maintenance.StripButtonLabel(ctx, substring)
	if err != nil {
		return fmt.Errorf("strip label: %w", err)
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "updated %d rule(s)\n", n)
	return nil
}

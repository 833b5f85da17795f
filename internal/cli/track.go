package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/almanac/internal/planner"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <item-id>",
		Short: "Mark an item completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				it, err := p.CompleteItem(args[0])
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), it)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed %q\n", it.Title)
				return nil
			})
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "check <habit-id>",
		Short: "Record a habit check-in",
		Long: `Check records that a habit was done. Checking the same habit twice on
one day increments that day's count.

Example:
  almanac check 0190f3c2-...
  almanac check 0190f3c2-... --day yesterday`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.parseDay(day)
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				c, err := p.CheckIn(args[0], d)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), c)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checked in %s (count %d)\n", c.Day.Format(time.DateOnly), c.Count)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "today", "day of the check-in")
	return cmd
}

func newStepCmd(a *app) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "step <routine-id> <index>",
		Short: "Mark a routine step done",
		Long: `Step marks one step of a routine done for a day. Steps are numbered
from zero in the order they were given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.parseDay(day)
			if err != nil {
				return err
			}
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("%w: step %q is not a number", types.ErrInvalidPosition, args[1])
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				pr, err := p.CompleteStep(args[0], d, idx)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), pr)
				}
				tmpl, _ := p.Routines.Get(args[0])
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d steps done\n", tmpl.Name, len(pr.CompletedSteps), len(tmpl.Steps))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&day, "day", "today", "day the step was done")
	return cmd
}

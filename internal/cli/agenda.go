package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/almanac/internal/agenda"
	"github.com/mesh-intelligence/almanac/internal/planner"
)

func newAgendaCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show what is scheduled over a range of days",
		Long: `Agenda lists the items, habits and routines that fall on each day from
--from to --to, both inclusive. The default range is the next seven days.

Example:
  almanac agenda
  almanac agenda --from 2026-01-01 --to 2026-01-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := a.parseDay(from)
			if err != nil {
				return err
			}
			end := start.AddDate(0, 0, 6)
			if to != "" {
				if end, err = a.parseDay(to); err != nil {
					return err
				}
			}
			if end.Before(start) {
				return fmt.Errorf("--to %s is before --from %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				entries, err := p.Agenda(start, end)
				if err != nil {
					a.logger.Warn("some schedules could not be expanded", "error", err)
				}
				if a.flags.jsonMode {
					if entries == nil {
						entries = []agenda.Entry{}
					}
					return printJSON(cmd.OutOrStdout(), entries)
				}
				printAgenda(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "today", "first day")
	cmd.Flags().StringVar(&to, "to", "", "last day (default: six days after --from)")
	return cmd
}

func newNextCmd(a *app) *cobra.Command {
	var after string
	cmd := &cobra.Command{
		Use:   "next <kind> <id>",
		Short: "Show the next occurrence of an item, habit or routine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			day, err := a.parseDay(after)
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				rec, err := p.Recurring(kind, args[1])
				if err != nil {
					return err
				}
				next, ok, err := agenda.Next(rec, day)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					out := struct {
						ID   string     `json:"id"`
						Next *time.Time `json:"next"`
					}{ID: args[1]}
					if ok {
						out.Next = &next
					}
					return printJSON(cmd.OutOrStdout(), out)
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s has no occurrence after %s\n", rec.Label(), day.Format(time.DateOnly))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rec.Label(), next.Format("2006-01-02 Mon"))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&after, "after", "today", "find the first occurrence after this day")
	return cmd
}

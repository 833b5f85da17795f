package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/almanac/internal/planner"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item, category, habit or routine",
	}
	cmd.AddCommand(
		newAddItemCmd(a),
		newAddCategoryCmd(a),
		newAddHabitCmd(a),
		newAddRoutineCmd(a),
	)
	return cmd
}

func addScheduleFlags(cmd *cobra.Command, f *scheduleFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.start, "start", "today", "first day (YYYY-MM-DD, today, tomorrow)")
	fs.StringVar(&f.every, "every", "", "repeat unit (daily, weekly, monthly, yearly)")
	fs.IntVar(&f.interval, "interval", 1, "repeat every N units")
	fs.StringVar(&f.until, "until", "", "last possible day (YYYY-MM-DD)")
	fs.IntVar(&f.count, "count", 0, "number of occurrences, counting the first")
}

func newAddItemCmd(a *app) *cobra.Command {
	var (
		sched    scheduleFlags
		notes    string
		category string
	)
	cmd := &cobra.Command{
		Use:   "item <title>",
		Short: "Add a calendar item or task",
		Long: `Add an item that appears on its start day and, with --every, on each
recurrence after it.

Example:
  almanac add item "Dentist" --start 2026-03-04
  almanac add item "Pay rent" --start 2026-01-31 --every monthly
  almanac add item "Standup" --every daily --count 10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, pattern, err := a.schedule(sched)
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				if category != "" {
					if _, ok := p.Categories.Get(category); !ok {
						return fmt.Errorf("%w: category %q", types.ErrNotFound, category)
					}
				}
				it, err := p.Items.Add(types.Item{
					Title:      strings.Join(args, " "),
					Notes:      notes,
					CategoryID: category,
					Start:      start,
					Recurrence: pattern,
				})
				if err != nil {
					return err
				}
				return a.printAdded(cmd, it, it.ID)
			})
		},
	}
	addScheduleFlags(cmd, &sched)
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&category, "category", "", "category ID")
	return cmd
}

func newAddCategoryCmd(a *app) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "category <name>",
		Short: "Add a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				c, err := p.Categories.Add(types.Category{Name: strings.Join(args, " "), Color: color})
				if err != nil {
					return err
				}
				return a.printAdded(cmd, c, c.ID)
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "display color")
	return cmd
}

func newAddHabitCmd(a *app) *cobra.Command {
	var (
		sched scheduleFlags
		notes string
	)
	cmd := &cobra.Command{
		Use:   "habit <name>",
		Short: "Add a habit",
		Long: `Add a habit to track with "almanac check". Habits default to daily.

Example:
  almanac add habit "Read 20 pages"
  almanac add habit "Long run" --every weekly --start 2026-01-04`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sched.every == "" {
				sched.every = string(types.FrequencyDaily)
			}
			start, pattern, err := a.schedule(sched)
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				h, err := p.Habits.Add(types.Habit{
					Name:       strings.Join(args, " "),
					Notes:      notes,
					Start:      start,
					Recurrence: pattern,
				})
				if err != nil {
					return err
				}
				return a.printAdded(cmd, h, h.ID)
			})
		},
	}
	addScheduleFlags(cmd, &sched)
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newAddRoutineCmd(a *app) *cobra.Command {
	var (
		sched scheduleFlags
		steps []string
	)
	cmd := &cobra.Command{
		Use:   "routine <name>",
		Short: "Add a routine checklist",
		Long: `Add a routine made of ordered steps. Routines default to daily.

Example:
  almanac add routine "Morning" --step "Stretch" --step "Coffee" --step "Plan day"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(steps) == 0 {
				return fmt.Errorf("%w: a routine needs at least one --step", types.ErrInvalidData)
			}
			if sched.every == "" {
				sched.every = string(types.FrequencyDaily)
			}
			start, pattern, err := a.schedule(sched)
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				r, err := p.Routines.Add(types.RoutineTemplate{
					Name:       strings.Join(args, " "),
					Steps:      steps,
					Start:      start,
					Recurrence: pattern,
				})
				if err != nil {
					return err
				}
				return a.printAdded(cmd, r, r.ID)
			})
		},
	}
	addScheduleFlags(cmd, &sched)
	cmd.Flags().StringArrayVar(&steps, "step", nil, "routine step, repeatable")
	return cmd
}

// printAdded prints a created record, or just its ID in text mode.
func (a *app) printAdded(cmd *cobra.Command, v any, id string) error {
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/almanac/internal/planner"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

// kindAliases maps user-facing names onto kind names.
var kindAliases = map[string]string{
	"item":        types.KindItems,
	"category":    types.KindCategories,
	"habit":       types.KindHabits,
	"completion":  types.KindHabitCompletions,
	"completions": types.KindHabitCompletions,
	"routine":     types.KindRoutines,
	"progress":    types.KindRoutineProgress,
}

var validKindsStr = strings.Join(types.StandardKinds, ", ")

func parseKind(s string) (string, error) {
	s = strings.ToLower(s)
	if types.IsKnownKind(s) {
		return s, nil
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w %q (valid: %s)", types.ErrUnknownKind, s, validKindsStr)
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <kind>",
		Short: "List the records of one kind",
		Long: `List prints one kind's local records in display order.

Valid kinds: ` + validKindsStr + `

Example:
  almanac list items
  almanac list habits --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				records, err := p.List(kind)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), records)
				}
				printRecords(cmd.OutOrStdout(), kind, records)
				return nil
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete a record",
		Long: `Delete removes a record locally and schedules its remote delete.
A failed remote delete is logged, not retried.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				c, err := p.Collection(kind)
				if err != nil {
					return err
				}
				if err := c.Delete(args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind, args[1])
				return nil
			})
		},
	}
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <kind> <from> <to>",
		Short: "Move a record to another position",
		Long: `Move changes a record's display position. Positions are the zero-based
"#" column of "almanac list".

Example:
  almanac move items 3 0`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			from, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			to, err := parsePosition(args[2])
			if err != nil {
				return err
			}
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				c, err := p.Collection(kind)
				if err != nil {
					return err
				}
				if err := c.Move(from, to); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s %d to %d\n", kind, from, to)
				return nil
			})
		},
	}
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", types.ErrInvalidPosition, s)
	}
	return n, nil
}

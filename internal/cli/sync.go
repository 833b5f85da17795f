package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/almanac/internal/planner"
	"github.com/mesh-intelligence/almanac/pkg/types"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every collection with the remote store",
		Long: `Sync fetches each kind from the remote store, merges it into the local
collection (the newer modification wins), and pushes local records back.

Kinds sync independently; a failing kind does not stop the others.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withPlanner(cmd.Context(), func(p *planner.Planner) error {
				results, syncErr := p.SyncAll(cmd.Context())
				if a.flags.jsonMode {
					if err := printJSON(cmd.OutOrStdout(), results); err != nil {
						return err
					}
					return syncErr
				}

				var sb strings.Builder
				tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tFETCHED\tMERGED\tPUSHED\tFAILED")
				for _, kind := range types.StandardKinds {
					r := results[kind]
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", kind, r.Fetched, r.Merged, r.Pushed, r.Failed)
				}
				tw.Flush()
				fmt.Fprint(cmd.OutOrStdout(), sb.String())
				return syncErr
			})
		},
	}
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/goal"
)

// NewUpgradeCmd creates the upgrade command.
func NewUpgradeCmd() *cobra.Command {
	var excludes []string
	cmd := &cobra.Command{
		Use:     "upgrade [PACKAGE...]",
		Aliases: []string{"update"},
		Short:   "Upgrade packages",
		Long: `Upgrade the given installed packages to the newest available version,
or every installed package when none is given. Packages obsoleted by an
available package are replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpgrade(cmd, args, excludes)
		},
	}

	cmd.Flags().StringSliceVarP(&excludes, "exclude", "x", nil, "Leave packages matching the pattern out of the transaction")

	return cmd
}

func runUpgrade(cmd *cobra.Command, specs, excludes []string) error {
	request := each(specs, (*goal.Goal).Upgrade)
	if len(specs) == 0 {
		request = func(g *goal.Goal) error { return g.Upgrade("") }
	}
	return withSession(cmd, func(ctx context.Context, s *session) error {
		return s.commit(ctx, s.solve(request, solveOptions{reportUpdates: true, exclude: excludes}))
	})
}

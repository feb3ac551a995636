package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/goal"
)

// NewDowngradeCmd creates the downgrade command.
func NewDowngradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downgrade PACKAGE...",
		Short: "Downgrade packages",
		Long:  "Replace installed packages with the next older version available.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.commit(ctx, s.solve(each(args, (*goal.Goal).Downgrade), solveOptions{}))
			})
		},
	}

	return cmd
}

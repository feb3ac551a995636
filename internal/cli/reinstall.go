package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/goal"
)

// NewReinstallCmd creates the reinstall command.
func NewReinstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reinstall PACKAGE...",
		Short: "Reinstall packages",
		Long:  "Install the same build of installed packages again, restoring their files.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.commit(ctx, s.solve(each(args, (*goal.Goal).Reinstall), solveOptions{}))
			})
		},
	}

	return cmd
}

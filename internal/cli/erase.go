package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/goal"
)

// NewEraseCmd creates the erase command.
func NewEraseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "erase PACKAGE...",
		Aliases: []string{"remove"},
		Short:   "Remove packages",
		Long: `Remove installed packages. Installed packages that depend on them are
removed as well, and dependencies nothing needs any more are cleaned up.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runErase(cmd, args)
		},
	}

	return cmd
}

func runErase(cmd *cobra.Command, specs []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		plan := s.solve(each(specs, (*goal.Goal).Erase), solveOptions{cleanDeps: true})
		return s.commit(ctx, plan)
	})
}

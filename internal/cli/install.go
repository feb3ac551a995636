package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/goal"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var excludes []string
	cmd := &cobra.Command{
		Use:   "install PACKAGE...",
		Short: "Install packages",
		Long: `Install one or more packages from the configured repositories.
A package is given by name, name.arch, NEVRA or a provided capability.
Dependencies are resolved and installed along with it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args, excludes)
		},
	}

	cmd.Flags().StringSliceVarP(&excludes, "exclude", "x", nil, "Leave packages matching the pattern out of the transaction")

	return cmd
}

func runInstall(cmd *cobra.Command, specs, excludes []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		plan := s.solve(each(specs, func(g *goal.Goal, spec string) error {
			_, err := g.Install(spec, false)
			return err
		}), solveOptions{exclude: excludes})
		return s.commit(ctx, plan)
	})
}

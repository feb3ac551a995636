package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/cache"
	"github.com/glorpus-work/gotx/pkg/lock"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	var info bool

	cmd := &cobra.Command{
		Use:       "clean [metadata|packages|all]",
		Short:     "Remove cached data",
		Long:      "Remove downloaded repository metadata, cached package archives, or both (the default).",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(cache.TargetMetadata), string(cache.TargetPackages), string(cache.TargetAll)},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := string(cache.TargetAll)
			if len(args) == 1 {
				target = args[0]
			}
			return runClean(cmd, target, info)
		},
	}

	cmd.Flags().BoolVar(&info, "info", false, "Only show the cache size")

	return cmd
}

func runClean(cmd *cobra.Command, name string, info bool) error {
	target, err := cache.ParseTarget(name)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c := cache.New(cfg.GetIndexDir(), cfg.GetPackageCacheDir())

	if info {
		i, err := c.Info()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), i)
		return nil
	}

	guard, err := lock.Acquire(cmd.Context(), cfg.GetLockPath(), lock.Options{
		FailFast: cfg.Settings.LockFailFast,
		Poll:     cfg.Settings.LockPoll.Std(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = guard.Release() }()

	result, err := c.Clean(target)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

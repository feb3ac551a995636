package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/download"
	"github.com/glorpus-work/gotx/pkg/lock"
	"github.com/glorpus-work/gotx/pkg/orchestrator"
)

// NewMakeCacheCmd creates the makecache command.
func NewMakeCacheCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "makecache",
		Short: "Download repository metadata",
		Long: `Download the index of every enabled repository whose cached copy is
older than metadata_expire. Use --force to refresh all of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMakeCache(cmd, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Refresh indexes that are not expired yet")

	return cmd
}

func runMakeCache(cmd *cobra.Command, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repos, err := cfg.RepositoryList()
	if err != nil {
		return err
	}

	guard, err := lock.Acquire(cmd.Context(), cfg.GetLockPath(), lock.Options{
		FailFast: cfg.Settings.LockFailFast,
		Poll:     cfg.Settings.LockPoll.Std(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = guard.Release() }()

	dir := cfg.GetIndexDir()
	var stale []orchestrator.RepoIndex
	for _, r := range repos {
		if !r.Enabled {
			continue
		}
		if !force && !r.IsCacheStale(dir, cfg.Settings.MetadataExpire.Std()) {
			logger.Debug("Index is up to date", logger.Fields{"repo": r.Name})
			continue
		}
		stale = append(stale, orchestrator.RepoIndex{Name: r.Name, URL: r.IndexURL()})
	}

	p := &orchestrator.Pipeline{
		DL:          download.NewManager(cfg.Settings.HTTPTimeout.Std(), "gotx/"+Version),
		Credentials: cfg.Credentials(),
		Hooks:       progressHooks(),
	}
	paths, err := p.SyncAll(cmd.Context(), stale, dir, cfg.Settings.DownloadConcurrency)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: metadata cached at %s\n", name, paths[name])
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Metadata cache created.")
	return nil
}

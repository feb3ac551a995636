package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/config"
	"github.com/glorpus-work/gotx/pkg/installer"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/repository"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search PATTERN",
		Short: "Search for packages",
		Long: `Search installed packages and the cached repository metadata. PATTERN is
a name, name.arch, NEVRA or a glob over any of them. Run makecache first to
refresh the metadata.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0])
		},
	}

	return cmd
}

func runSearch(cmd *cobra.Command, pattern string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sack, err := readOnlySack(cfg)
	if err != nil {
		return err
	}

	pkgs := sack.Search(pattern)
	if len(pkgs) == 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No matches found for '%s'\n", pattern)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(w, "PACKAGE\tVERSION\tREPOSITORY\tSUMMARY")
	for _, p := range pkgs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.NA(), p.EVR(), p.Repo, truncate(oneLine(p), MaxSummaryLength))
	}
	return w.Flush()
}

// readOnlySack loads the package universe without taking the lock.
func readOnlySack(cfg *config.Config) (*repository.Sack, error) {
	db, err := installer.LoadDatabase(cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}
	installed := make([]*model.Package, 0, len(db.Records()))
	for _, rec := range db.Records() {
		installed = append(installed, rec.Snapshot())
	}
	repos, err := cfg.RepositoryList()
	if err != nil {
		return nil, err
	}
	sack := repository.NewSack(cfg.Settings.Arch, installed)
	if err := sack.LoadCached(repos, cfg.GetIndexDir()); err != nil {
		return nil, err
	}
	return sack, nil
}

func oneLine(p *model.Package) string {
	if i := strings.IndexByte(p.Summary, '\n'); i >= 0 {
		return p.Summary[:i]
	}
	return p.Summary
}

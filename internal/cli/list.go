package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/history"
	"github.com/glorpus-work/gotx/pkg/installer"
	"github.com/glorpus-work/gotx/pkg/model"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long: `List the installed packages with the reason each one was installed for.
Use --name to filter by name, name.arch or NEVRA; glob patterns are accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, pattern)
		},
	}

	cmd.Flags().StringVar(&pattern, "name", "", "Filter packages by name or glob")

	return cmd
}

func runList(cmd *cobra.Command, pattern string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := installer.LoadDatabase(cfg.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("failed to load installed database: %w", err)
	}

	var pkgs []*model.Package
	for _, rec := range db.Records() {
		if pattern == "" || rec.ExactMatch(pattern) || model.IsGlob(pattern) && rec.GlobMatch(pattern) {
			pkgs = append(pkgs, rec.Snapshot())
		}
	}
	if len(pkgs) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No packages installed")
		return nil
	}

	return withHistory(func(store *history.SQLiteStore) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
		_, _ = fmt.Fprintln(w, "PACKAGE\tVERSION\tREASON")
		for _, p := range pkgs {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.NA(), p.EVR(), store.ReasonOf(p.PkgRef))
		}
		return w.Flush()
	})
}

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/config"
	"github.com/glorpus-work/gotx/pkg/repository"
)

// NewRepoCmd creates the repo command with subcommands.
func NewRepoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories",
		Long:  "Add, remove, list and enable package repositories, and build repository indexes",
	}

	cmd.AddCommand(
		newRepoAddCmd(),
		newRepoRemoveCmd(),
		newRepoListCmd(),
		newRepoEnableCmd(true),
		newRepoEnableCmd(false),
		newRepoIndexCmd(),
	)

	return cmd
}

func newRepoAddCmd() *cobra.Command {
	var (
		priority uint
		gpgKeys  []string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Add a repository",
		Long:  "Add a package repository by name and base URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return editConfig(func(cfg *config.Config) error {
				if err := cfg.AddRepository(args[0], args[1], !disabled); err != nil {
					return err
				}
				rc := cfg.GetRepository(args[0])
				rc.Priority = priority
				rc.GPGKey = gpgKeys
				return nil
			})
		},
	}

	cmd.Flags().UintVar(&priority, "priority", 0, "Repository priority (higher numbers have higher priority)")
	cmd.Flags().StringSliceVar(&gpgKeys, "gpgkey", nil, "Signing key file or URL (repeatable)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the repository disabled")

	return cmd
}

func newRepoRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return editConfig(func(cfg *config.Config) error {
				if !cfg.RemoveRepository(args[0]) {
					return fmt.Errorf("repository '%s' not found", args[0])
				}
				return nil
			})
		},
	}

	return cmd
}

func newRepoEnableCmd(enable bool) *cobra.Command {
	use, short := "enable NAME", "Enable a repository"
	if !enable {
		use, short = "disable NAME", "Disable a repository"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return editConfig(func(cfg *config.Config) error {
				if !cfg.EnableRepository(args[0], enable) {
					return fmt.Errorf("repository '%s' not found", args[0])
				}
				return nil
			})
		},
	}

	return cmd
}

func newRepoListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.Repositories) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No repositories configured")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, TabWidth, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tSTATUS\tPRIORITY\tBASEURL")
			for _, rc := range cfg.Repositories {
				status := "enabled"
				if !rc.IsEnabled() {
					status = "disabled"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", rc.Name, status, rc.Priority, rc.BaseURL)
			}
			return w.Flush()
		},
	}

	return cmd
}

func newRepoIndexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "index DIR",
		Short: "Generate a repository index",
		Long: `Scan DIR for package archives and write the repository index to
DIR/repodata/index.json. DIR can then be served as a repository base URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := repository.NewGenerator(args[0])
			gen.ForceOverwrite = force
			n, err := gen.Generate(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d packages into %s\n", n, gen.OutputPath())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing index")

	return cmd
}

// editConfig loads the configuration file, applies edit and saves it back.
func editConfig(edit func(cfg *config.Config) error) error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	if err := edit(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveConfig(getConfigPath()); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	logger.Success("Configuration updated", logger.Fields{"path": getConfigPath()})
	return nil
}

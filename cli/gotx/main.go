package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/internal/cli"
)

var (
	configPath string
	verbose    bool
	noColor    bool
	assumeYes  bool
	assumeNo   bool
	noWait     bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cli.PrintError(err)
		cancel()
		os.Exit(cli.ExitCode(err))
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gotx",
		Short: "A transactional package manager",
		Long: `gotx installs, upgrades and removes packages as transactions:
- resolve a request against the installed set and the repositories
- download and verify the packages, then apply them in one step
- record every transaction so it can be undone, redone or rolled back`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVarP(&assumeYes, "assumeyes", "y", false, "answer yes to every question")
	cmd.PersistentFlags().BoolVar(&assumeNo, "assumeno", false, "answer no to every question")
	cmd.PersistentFlags().BoolVar(&noWait, "nowait", false, "fail instead of waiting for the lock")
	cmd.MarkFlagsMutuallyExclusive("assumeyes", "assumeno")

	// Set up CLI package variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor
	cli.AssumeYes = &assumeYes
	cli.AssumeNo = &assumeNo
	cli.NoWait = &noWait

	cmd.AddCommand(
		cli.NewInstallCmd(),
		cli.NewUpgradeCmd(),
		cli.NewEraseCmd(),
		cli.NewDowngradeCmd(),
		cli.NewReinstallCmd(),
		cli.NewHistoryCmd(),
		cli.NewMakeCacheCmd(),
		cli.NewCleanCmd(),
		cli.NewSearchCmd(),
		cli.NewListCmd(),
		cli.NewRepoCmd(),
		cli.NewPackCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}

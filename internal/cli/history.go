package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/gotx/pkg/history"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// NewHistoryCmd creates the history command with its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and replay past transactions",
		Long: `Show the transaction history and build new transactions from it.
A unit is referred to by its ID or by "last".`,
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryInfoCmd(),
		newHistoryUndoCmd(),
		newHistoryRedoCmd(),
		newHistoryRollbackCmd(),
		newHistoryUserInstalledCmd(),
	)

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List past transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(func(store *history.SQLiteStore) error {
				units, err := store.List(limit)
				if err != nil {
					return err
				}
				printUnits(cmd.OutOrStdout(), units)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", DefaultHistoryLimit, "Maximum number of transactions to show")

	return cmd
}

func newHistoryInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [ID]",
		Short: "Show the operations of a past transaction",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := "last"
			if len(args) == 1 {
				ref = args[0]
			}
			return withHistory(func(store *history.SQLiteStore) error {
				id, err := unitID(store, ref)
				if err != nil {
					return err
				}
				u, err := store.Unit(id)
				if err != nil {
					return err
				}
				printUnit(cmd.OutOrStdout(), u)
				return nil
			})
		},
	}
}

func newHistoryUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo ID",
		Short: "Revert a past transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0], func(r *history.Replayer, id int64) (*transaction.Transaction, error) {
				return r.Undo(id)
			})
		},
	}
}

func newHistoryRedoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redo ID",
		Short: "Repeat a past transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0], func(r *history.Replayer, id int64) (*transaction.Transaction, error) {
				return r.Redo(id)
			})
		},
	}
}

func newHistoryRollbackCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollback ID",
		Short: "Revert every transaction after the given one",
		Long: `Revert every transaction recorded after the given one. The rollback is
refused when the package database was changed outside of gotx in that
range, unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0], func(r *history.Replayer, id int64) (*transaction.Transaction, error) {
				return r.Rollback(id, force)
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Roll back across out-of-band database changes")

	return cmd
}

func newHistoryUserInstalledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "userinstalled",
		Short: "List packages installed on user request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(func(store *history.SQLiteStore) error {
				refs, err := store.UserInstalled()
				if err != nil {
					return err
				}
				for _, ref := range refs {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), ref)
				}
				return nil
			})
		},
	}
}

func runReplay(cmd *cobra.Command, ref string, build func(r *history.Replayer, id int64) (*transaction.Transaction, error)) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		id, err := unitID(s.store, ref)
		if err != nil {
			return err
		}
		return s.commit(ctx, s.replay(func(r *history.Replayer) (*transaction.Transaction, error) {
			return build(r, id)
		}))
	})
}

// withHistory opens the history database for read-only commands. These
// don't take the process lock.
func withHistory(fn func(store *history.SQLiteStore) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.OpenSQLite(cfg.GetHistoryPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func unitID(store history.Store, ref string) (int64, error) {
	if ref == "last" {
		u, err := store.Last()
		if err != nil {
			return 0, err
		}
		if u == nil {
			return 0, fmt.Errorf("no transactions recorded")
		}
		return u.ID, nil
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid transaction ID %q", ref)
	}
	return id, nil
}

func printUnits(out io.Writer, units []*history.Unit) {
	if len(units) == 0 {
		_, _ = fmt.Fprintln(out, "No transactions recorded")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCommand line\tDate and time\tAction(s)\tAltered")
	for _, u := range units {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			u.ID, truncate(u.Cmdline, MaxSummaryLength), u.Begin.Local().Format("2006-01-02 15:04"),
			actions(u), altered(u))
	}
	_ = w.Flush()
}

func printUnit(out io.Writer, u *history.Unit) {
	_, _ = fmt.Fprintf(out, "Transaction ID : %d\n", u.ID)
	_, _ = fmt.Fprintf(out, "Begin time     : %s\n", u.Begin.Local().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(out, "Begin DB       : %s\n", u.DBVersionBefore)
	_, _ = fmt.Fprintf(out, "End time       : %s\n", u.End.Local().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(out, "End DB         : %s\n", u.DBVersionAfter)
	_, _ = fmt.Fprintf(out, "Return-Code    : %d\n", u.ReturnCode)
	_, _ = fmt.Fprintf(out, "Command Line   : %s\n", u.Cmdline)
	if u.AlteredBeforeBase {
		_, _ = fmt.Fprintln(out, "**             : database altered outside gotx before this transaction")
	}
	if u.AlteredAfterBase {
		_, _ = fmt.Fprintln(out, "**             : database altered outside gotx after this transaction")
	}
	_, _ = fmt.Fprintln(out, "Packages Altered:")
	for _, op := range u.Ops {
		_, _ = fmt.Fprintf(out, "    %s\n", op)
	}
}

// actions summarizes the operation kinds of u in first-seen order.
func actions(u *history.Unit) string {
	var kinds []string
	seen := make(map[history.OpKind]bool)
	for _, op := range u.Ops {
		if !seen[op.Kind] {
			seen[op.Kind] = true
			kinds = append(kinds, string(op.Kind))
		}
	}
	return strings.Join(kinds, ", ")
}

func altered(u *history.Unit) string {
	var flags string
	if u.AlteredBeforeBase {
		flags += "<"
	}
	if u.AlteredAfterBase {
		flags += ">"
	}
	if u.ReturnCode != 0 {
		flags += "E"
	}
	return flags
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

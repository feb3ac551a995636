package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/orchestrator"
	"github.com/glorpus-work/gotx/pkg/transaction"
	"github.com/glorpus-work/gotx/pkg/txdata"
)

// progressHooks logs pipeline progress.
func progressHooks() orchestrator.Hooks {
	return orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		fields := logger.Fields{"phase": string(e.Phase)}
		if e.ID != "" {
			fields["id"] = e.ID
		}
		if e.Msg != "" {
			fields["msg"] = e.Msg
		}
		logger.Debug("Transaction progress", fields)
	}}
}

type section struct {
	title   string
	members []*txdata.TransactionMember
	col     *color.Color
}

// printSummary lists what tx will do. With the working set at hand the
// packages pulled in as dependencies are listed apart.
func printSummary(out io.Writer, tx *transaction.Transaction, ts *txdata.TransactionData, noColor bool) {
	if tx == nil || tx.Empty() {
		return
	}
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	if noColor {
		for _, c := range []*color.Color{bold, green, yellow, red} {
			c.DisableColor()
		}
	}

	tw := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	if ts != nil {
		l := ts.MakeLists(true, true)
		for _, s := range []section{
			{"Installing:", l.Installed, green},
			{"Upgrading:", l.Updated, green},
			{"Reinstalling:", l.Reinstalled, yellow},
			{"Downgrading:", l.Downgraded, yellow},
			{"Removing:", l.Removed, red},
			{"Replaced by obsoletes:", l.Obsoleted, red},
			{"Installing dependencies:", l.DepInstalled, green},
			{"Upgrading dependencies:", l.DepUpdated, green},
			{"Removing unused dependencies:", l.DepRemoved, red},
		} {
			if len(s.members) == 0 {
				continue
			}
			_, _ = bold.Fprintln(tw, s.title)
			for _, m := range s.members {
				_, _ = fmt.Fprintf(tw, " %s\t%s\t%s\n", s.col.Sprint(m.Pkg.NA()), m.Pkg.EVR(), repoOf(m.Pkg.Repo))
			}
		}
	} else {
		for _, it := range tx.Items() {
			col := green
			switch it.Op {
			case transaction.OpErase:
				col = red
			case transaction.OpDowngrade, transaction.OpReinstall:
				col = yellow
			}
			_, _ = fmt.Fprintf(tw, " %s\n", col.Sprint(it.String()))
		}
	}
	_ = tw.Flush()

	_, _ = bold.Fprintln(out, "\nTransaction Summary")
	counts := tx.Counts()
	for _, op := range []transaction.Op{
		transaction.OpInstall, transaction.OpUpgrade, transaction.OpReinstall,
		transaction.OpDowngrade, transaction.OpErase,
	} {
		if n := counts[op]; n > 0 {
			_, _ = fmt.Fprintf(out, "%-10s %d package(s)\n", op, n)
		}
	}
}

func repoOf(name string) string {
	if name == "" {
		return "@commandline"
	}
	return name
}

package cli

import (
	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/goal"
	"github.com/glorpus-work/gotx/pkg/history"
	"github.com/glorpus-work/gotx/pkg/solver"
	"github.com/glorpus-work/gotx/pkg/transaction"
	"github.com/glorpus-work/gotx/pkg/txdata"
)

// planFunc builds a frozen transaction. The working set is nil for
// transactions rebuilt from history.
type planFunc func() (*transaction.Transaction, *txdata.TransactionData, error)

// solveOptions tune one solver run.
type solveOptions struct {
	// cleanDeps protects user-installed packages so that only unneeded
	// dependencies are cleaned up.
	cleanDeps bool
	// reportUpdates logs the available updates the solver did not pick.
	reportUpdates bool
	// exclude lists patterns deselected from the working set before it is
	// frozen.
	exclude []string
}

// solve returns a plan that queues request on a fresh solver over the
// session's package universe.
func (s *session) solve(request func(g *goal.Goal) error, opts solveOptions) planFunc {
	return func() (*transaction.Transaction, *txdata.TransactionData, error) {
		g := goal.New(solver.New(s.sack))
		if opts.cleanDeps {
			g.PushUserInstalled(s.sack, s.store)
		}
		if err := request(g); err != nil {
			return nil, nil, err
		}
		if err := g.Run(); err != nil {
			return nil, nil, err
		}
		ts := txdata.New()
		if err := g.Fill(ts); err != nil {
			return nil, nil, err
		}
		exclude(ts, opts.exclude, s.sack)
		tx, err := ts.Freeze()
		if err != nil {
			return nil, nil, err
		}
		if opts.reportUpdates {
			for _, p := range g.AvailableUpdatesDiff(s.sack) {
				logger.Info("Update available but not selected", logger.Fields{"package": p.PkgRef.String()})
			}
		}
		return tx, ts, nil
	}
}

// exclude deselects every member matching one of patterns. Patterns that
// match nothing are only logged.
func exclude(ts *txdata.TransactionData, patterns []string, lookup txdata.PackageLookup) {
	for _, pattern := range patterns {
		removed := ts.Deselect(pattern, lookup)
		if len(removed) == 0 {
			logger.Warn("Excluded pattern matches nothing in the transaction", logger.Fields{"pattern": pattern})
			continue
		}
		for _, m := range removed {
			logger.Debug("Excluded from transaction", logger.Fields{"package": m.Ref().String(), "pattern": pattern})
		}
	}
}

// replay returns a plan that rebuilds a transaction from the history log.
func (s *session) replay(build func(r *history.Replayer) (*transaction.Transaction, error)) planFunc {
	return func() (*transaction.Transaction, *txdata.TransactionData, error) {
		r := history.NewReplayer(s.store, s.sack)
		r.DBVersion = s.inst.DBVersion
		tx, err := build(r)
		return tx, nil, err
	}
}

// each queues request for every spec.
func each(specs []string, request func(g *goal.Goal, spec string) error) func(g *goal.Goal) error {
	return func(g *goal.Goal) error {
		for _, spec := range specs {
			if err := request(g, spec); err != nil {
				return err
			}
		}
		return nil
	}
}

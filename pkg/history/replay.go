package history

import (
	"fmt"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// PackageQuery is the current package universe.
type PackageQuery interface {
	Installed() []*model.Package
	// Available returns the repository packages matching a name or NEVRA.
	Available(spec string) []*model.Package
}

// Replayer rebuilds transactions from the history log.
type Replayer struct {
	Store Store
	Query PackageQuery
	// DBVersion, when set, returns the current package database checksum. A
	// mismatch with the latest unit counts as an out-of-band change.
	DBVersion func() (string, error)
}

// NewReplayer returns a replayer over store and query.
func NewReplayer(store Store, query PackageQuery) *Replayer {
	return &Replayer{Store: store, Query: query}
}

// Undo builds the inverse of unit id. On any failure no transaction is
// returned.
func (r *Replayer) Undo(id int64) (*transaction.Transaction, error) {
	u, err := r.Store.Unit(id)
	if err != nil {
		return nil, err
	}
	logger.Debug("building undo transaction", logger.Fields{"unit": id, "operations": len(u.Ops)})
	return r.inverse(u.Ops)
}

// Redo builds unit id again in its original direction.
func (r *Replayer) Redo(id int64) (*transaction.Transaction, error) {
	u, err := r.Store.Unit(id)
	if err != nil {
		return nil, err
	}
	logger.Debug("building redo transaction", logger.Fields{"unit": id, "operations": len(u.Ops)})

	b := r.newBuilder()
	for _, op := range u.Ops {
		if err := b.forward(op); err != nil {
			return nil, err
		}
	}
	return b.tx, nil
}

// Rollback builds the combined inverse of every unit after target. It fails
// with an IncompleteHistoryError when the package database was changed
// outside of recorded transactions within that range, unless force is set.
// Rolling back to the latest unit yields an empty transaction.
func (r *Replayer) Rollback(target int64, force bool) (*transaction.Transaction, error) {
	if _, err := r.Store.Unit(target); err != nil {
		return nil, err
	}
	units, err := r.Store.Units(target+1, 0)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return transaction.New(), nil
	}

	if err := r.markCurrentDrift(units[len(units)-1]); err != nil {
		return nil, err
	}
	for _, u := range units {
		if !u.Incomplete() {
			continue
		}
		if !force {
			return nil, &errors.IncompleteHistoryError{UnitID: u.ID}
		}
		logger.Warn("transaction history is incomplete", logger.Fields{"unit": u.ID})
	}

	merged := MergeOperations(units...)
	logger.Debug("building rollback transaction", logger.Fields{"target": target, "units": len(units), "operations": len(merged)})
	return r.inverse(merged)
}

func (r *Replayer) markCurrentDrift(last *Unit) error {
	if r.DBVersion == nil || last.DBVersionAfter == "" {
		return nil
	}
	current, err := r.DBVersion()
	if err != nil {
		return errors.Wrap(err, "read package database version")
	}
	if current != last.DBVersionAfter {
		last.AlteredAfterBase = true
	}
	return nil
}

func (r *Replayer) inverse(ops []NEVRAOperation) (*transaction.Transaction, error) {
	b := r.newBuilder()
	for _, op := range ops {
		if err := b.backward(op); err != nil {
			return nil, err
		}
	}
	return b.tx, nil
}

type builder struct {
	query     PackageQuery
	tx        *transaction.Transaction
	installed map[model.PkgRef]struct{}
}

func (r *Replayer) newBuilder() *builder {
	installed := make(map[model.PkgRef]struct{})
	for _, p := range r.Query.Installed() {
		installed[p.PkgRef] = struct{}{}
	}
	return &builder{query: r.Query, tx: transaction.New(), installed: installed}
}

func (b *builder) requireInstalled(ref model.PkgRef) error {
	if _, ok := b.installed[ref]; !ok {
		return &errors.PackagesNotInstalledError{Specs: []string{ref.String()}}
	}
	return nil
}

func (b *builder) requireAvailable(ref model.PkgRef) error {
	for _, p := range b.query.Available(ref.String()) {
		if p.PkgRef == ref {
			return nil
		}
	}
	return &errors.PackagesNotAvailableError{Specs: []string{ref.String()}}
}

func (b *builder) isInstalled(ref model.PkgRef) bool {
	_, ok := b.installed[ref]
	return ok
}

func added(_ *transaction.Item, err error) error {
	return err
}

// backward adds the inverse of op.
func (b *builder) backward(op NEVRAOperation) error {
	switch op.Kind {
	case KindInstall:
		if err := b.requireInstalled(op.New); err != nil {
			return err
		}
		if err := added(b.tx.AddErase(op.New)); err != nil {
			return err
		}
		return b.reinstateObsoleted(op.Obsoleted)

	case KindErase:
		return b.reinstate(op.New)

	case KindUpdate, KindDowngrade:
		old, err := b.oldSide(op)
		if err != nil {
			return err
		}
		if err := b.requireInstalled(op.New); err != nil {
			return err
		}
		if err := b.requireAvailable(old); err != nil {
			return err
		}
		if op.Kind == KindUpdate {
			err = added(b.tx.AddDowngrade(old, op.New, nil))
		} else {
			err = added(b.tx.AddUpgrade(old, op.New, nil))
		}
		if err != nil {
			return err
		}
		return b.reinstateObsoleted(op.Obsoleted)

	case KindReinstall:
		old, err := b.oldSide(op)
		if err != nil {
			return err
		}
		if err := b.requireInstalled(op.New); err != nil {
			return err
		}
		if err := b.requireAvailable(old); err != nil {
			return err
		}
		return added(b.tx.AddReinstall(old, op.New, b.installedSubset(op.Obsoleted)))
	}
	return &errors.UnsupportedOperationError{Reason: fmt.Sprintf("unknown history operation %q", op.Kind)}
}

// forward adds op itself.
func (b *builder) forward(op NEVRAOperation) error {
	switch op.Kind {
	case KindInstall:
		if err := b.requireAvailable(op.New); err != nil {
			return err
		}
		obs, err := b.requireAllInstalled(op.Obsoleted)
		if err != nil {
			return err
		}
		return added(b.tx.AddInstall(op.New, obs, model.ReasonUser))

	case KindErase:
		if err := b.requireInstalled(op.New); err != nil {
			return err
		}
		return added(b.tx.AddErase(op.New))

	case KindUpdate, KindDowngrade, KindReinstall:
		old, err := b.oldSide(op)
		if err != nil {
			return err
		}
		if err := b.requireAvailable(op.New); err != nil {
			return err
		}
		if err := b.requireInstalled(old); err != nil {
			return err
		}
		switch op.Kind {
		case KindUpdate:
			obs, err := b.requireAllInstalled(op.Obsoleted)
			if err != nil {
				return err
			}
			return added(b.tx.AddUpgrade(op.New, old, obs))
		case KindDowngrade:
			obs, err := b.requireAllInstalled(op.Obsoleted)
			if err != nil {
				return err
			}
			return added(b.tx.AddDowngrade(op.New, old, obs))
		default:
			return added(b.tx.AddReinstall(op.New, old, b.installedSubset(op.Obsoleted)))
		}
	}
	return &errors.UnsupportedOperationError{Reason: fmt.Sprintf("unknown history operation %q", op.Kind)}
}

func (b *builder) oldSide(op NEVRAOperation) (model.PkgRef, error) {
	if op.Old == nil {
		return model.PkgRef{}, fmt.Errorf("%w: %s of %s without a previous package", errors.ErrValidation, op.Kind, op.New)
	}
	return *op.Old, nil
}

// reinstate installs a package the operation removed.
func (b *builder) reinstate(ref model.PkgRef) error {
	if err := b.requireAvailable(ref); err != nil {
		return err
	}
	return added(b.tx.AddInstall(ref, nil, model.ReasonUser))
}

func (b *builder) reinstateObsoleted(refs []model.PkgRef) error {
	for _, ref := range refs {
		if err := b.reinstate(ref); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) requireAllInstalled(refs []model.PkgRef) ([]model.PkgRef, error) {
	for _, ref := range refs {
		if err := b.requireInstalled(ref); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

func (b *builder) installedSubset(refs []model.PkgRef) []model.PkgRef {
	var out []model.PkgRef
	for _, ref := range refs {
		if b.isInstalled(ref) {
			out = append(out, ref)
		}
	}
	return out
}

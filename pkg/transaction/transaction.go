package transaction

import (
	"fmt"
	"slices"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
)

// Transaction is an ordered list of items. Items are only ever appended; the
// Add methods refuse any item that would make the install set and the remove
// set overlap.
type Transaction struct {
	items []*Item
}

// New returns an empty transaction.
func New() *Transaction {
	return &Transaction{}
}

// Items returns the items in insertion order.
func (t *Transaction) Items() []*Item {
	return slices.Clone(t.items)
}

// Len returns the number of items.
func (t *Transaction) Len() int {
	return len(t.items)
}

// Empty reports whether the transaction has nothing to do.
func (t *Transaction) Empty() bool {
	return len(t.items) == 0
}

// AddInstall appends an Install of newPkg that obsoletes the given packages.
func (t *Transaction) AddInstall(newPkg model.PkgRef, obsoleted []model.PkgRef, reason model.Reason) (*Item, error) {
	return t.add(&Item{Op: OpInstall, Installed: refPtr(newPkg), Obsoleted: slices.Clone(obsoleted), Reason: reason})
}

// AddErase appends an Erase of erased.
func (t *Transaction) AddErase(erased model.PkgRef) (*Item, error) {
	return t.add(&Item{Op: OpErase, Erased: refPtr(erased)})
}

// AddUpgrade appends an Upgrade from old to newPkg.
func (t *Transaction) AddUpgrade(newPkg, old model.PkgRef, obsoleted []model.PkgRef) (*Item, error) {
	return t.add(&Item{Op: OpUpgrade, Installed: refPtr(newPkg), Erased: refPtr(old), Obsoleted: slices.Clone(obsoleted)})
}

// AddDowngrade appends a Downgrade from old to newPkg.
func (t *Transaction) AddDowngrade(newPkg, old model.PkgRef, obsoleted []model.PkgRef) (*Item, error) {
	return t.add(&Item{Op: OpDowngrade, Installed: refPtr(newPkg), Erased: refPtr(old), Obsoleted: slices.Clone(obsoleted)})
}

// AddReinstall appends a Reinstall of old by newPkg, normally the same build.
func (t *Transaction) AddReinstall(newPkg, old model.PkgRef, obsoleted []model.PkgRef) (*Item, error) {
	return t.add(&Item{Op: OpReinstall, Installed: refPtr(newPkg), Erased: refPtr(old), Obsoleted: slices.Clone(obsoleted)})
}

func (t *Transaction) add(item *Item) (*Item, error) {
	installs := t.installSet()
	removes := t.removeSet()

	own := make(map[model.PkgRef]struct{})
	for _, r := range item.Installs() {
		if _, ok := removes[r]; ok {
			return nil, fmt.Errorf("%w: %s", errors.ErrConflictingItem, r)
		}
		own[r] = struct{}{}
	}
	for _, r := range item.netRemoves() {
		if _, ok := installs[r]; ok {
			return nil, fmt.Errorf("%w: %s", errors.ErrConflictingItem, r)
		}
		if _, ok := own[r]; ok {
			return nil, fmt.Errorf("%w: %s", errors.ErrConflictingItem, r)
		}
	}

	t.items = append(t.items, item)
	return item, nil
}

// InstallSet returns every package some item installs, sorted.
func (t *Transaction) InstallSet() []model.PkgRef {
	return sortedKeys(t.installSet())
}

// RemoveSet returns every package some item erases or obsoletes, sorted. The
// erased side of a reinstall of the same build is not a removal.
func (t *Transaction) RemoveSet() []model.PkgRef {
	return sortedKeys(t.removeSet())
}

func (t *Transaction) installSet() map[model.PkgRef]struct{} {
	set := make(map[model.PkgRef]struct{})
	for _, it := range t.items {
		for _, r := range it.Installs() {
			set[r] = struct{}{}
		}
	}
	return set
}

func (t *Transaction) removeSet() map[model.PkgRef]struct{} {
	set := make(map[model.PkgRef]struct{})
	for _, it := range t.items {
		for _, r := range it.netRemoves() {
			set[r] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[model.PkgRef]struct{}) []model.PkgRef {
	out := make([]model.PkgRef, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	model.SortRefs(out)
	return out
}

// HasReinstall reports whether any item is a reinstall.
func (t *Transaction) HasReinstall() bool {
	return slices.ContainsFunc(t.items, func(it *Item) bool { return it.Op == OpReinstall })
}

// Counts returns the number of items per op.
func (t *Transaction) Counts() map[Op]int {
	out := make(map[Op]int)
	for _, it := range t.items {
		out[it.Op]++
	}
	return out
}

// RPMLimitations rejects transactions the installer cannot apply: installing
// source packages.
func (t *Transaction) RPMLimitations() error {
	for _, it := range t.items {
		if it.Installed != nil && it.Installed.IsSource() {
			return &errors.UnsupportedOperationError{
				Reason: fmt.Sprintf("will not install a source package: %s", it.Installed),
			}
		}
	}
	return nil
}

// PathLookup returns the local file of a package to install.
type PathLookup func(ref model.PkgRef) (string, bool)

// PopulateInstaller issues one installer call per item, in item order. The
// erased side of upgrades and the obsoleted packages are not erased
// explicitly: the installer replaces them when it installs the new package.
// The resulting order is not an execution order; call Installer.Order.
func (t *Transaction) PopulateInstaller(inst Installer, paths PathLookup) error {
	for _, it := range t.items {
		switch it.Op {
		case OpErase:
			if err := inst.AddErase(*it.Erased); err != nil {
				return errors.Wrapf(err, "queue erase of %s", it.Erased)
			}
		case OpReinstall:
			p, ok := paths(*it.Installed)
			if !ok {
				return fmt.Errorf("%w: no local file for %s", errors.ErrFileNotFound, it.Installed)
			}
			if err := inst.AddReinstall(*it.Installed, p); err != nil {
				return errors.Wrapf(err, "queue reinstall of %s", it.Installed)
			}
		default:
			p, ok := paths(*it.Installed)
			if !ok {
				return fmt.Errorf("%w: no local file for %s", errors.ErrFileNotFound, it.Installed)
			}
			upgrade := len(it.Obsoleted) > 0 || it.Op == OpUpgrade || it.Op == OpDowngrade
			if err := inst.AddInstall(*it.Installed, p, upgrade); err != nil {
				return errors.Wrapf(err, "queue install of %s", it.Installed)
			}
		}
	}
	return nil
}

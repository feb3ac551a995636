// Package transaction holds the frozen, executable form of a unit of work: an
// ordered list of typed items plus the contract of the low-level installer
// that applies them.
package transaction

import (
	"fmt"

	"github.com/glorpus-work/gotx/pkg/model"
)

// Op is the kind of a transaction item.
type Op int

const (
	OpDowngrade Op = iota + 1
	OpErase
	OpInstall
	OpReinstall
	OpUpgrade
)

var opNames = map[Op]string{
	OpDowngrade: "Downgrade",
	OpErase:     "Erase",
	OpInstall:   "Install",
	OpReinstall: "Reinstall",
	OpUpgrade:   "Upgrade",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Item is one logical operation of a transaction.
//
// Installed is set for every op except Erase, Erased for every op except a
// plain Install. Obsoleted is empty for Erase.
type Item struct {
	Op        Op
	Installed *model.PkgRef
	Erased    *model.PkgRef
	Obsoleted []model.PkgRef
	Reason    model.Reason
}

// Installs returns the package this item puts on the system, if any.
func (i *Item) Installs() []model.PkgRef {
	if i.Installed == nil {
		return nil
	}
	return []model.PkgRef{*i.Installed}
}

// Removes returns the erased package followed by the obsoleted ones.
func (i *Item) Removes() []model.PkgRef {
	out := make([]model.PkgRef, 0, len(i.Obsoleted)+1)
	if i.Erased != nil {
		out = append(out, *i.Erased)
	}
	return append(out, i.Obsoleted...)
}

// netRemoves is Removes without the erased side of a reinstall, which puts
// the very same build back.
func (i *Item) netRemoves() []model.PkgRef {
	if i.Op == OpReinstall && i.Erased != nil && i.Installed != nil && *i.Erased == *i.Installed {
		return append([]model.PkgRef(nil), i.Obsoleted...)
	}
	return i.Removes()
}

// Active returns the package the item is about: the installed side, or the
// erased one for Erase.
func (i *Item) Active() model.PkgRef {
	if i.Installed != nil {
		return *i.Installed
	}
	if i.Erased != nil {
		return *i.Erased
	}
	return model.PkgRef{}
}

func (i *Item) String() string {
	switch {
	case i.Installed != nil && i.Erased != nil:
		return fmt.Sprintf("%s %s (replacing %s)", i.Op, i.Installed, i.Erased)
	case i.Installed != nil:
		return fmt.Sprintf("%s %s", i.Op, i.Installed)
	case i.Erased != nil:
		return fmt.Sprintf("%s %s", i.Op, i.Erased)
	default:
		return i.Op.String()
	}
}

func refPtr(r model.PkgRef) *model.PkgRef {
	return &r
}

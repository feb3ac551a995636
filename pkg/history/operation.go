// Package history keeps the log of committed transactions and rebuilds
// transactions from it: the inverse of one unit (undo), the unit itself
// (redo), or the combined inverse of every unit after a target (rollback).
package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// OpKind is the kind of a logged operation.
type OpKind string

const (
	KindDowngrade OpKind = "Downgrade"
	KindErase     OpKind = "Erase"
	KindInstall   OpKind = "Install"
	KindReinstall OpKind = "Reinstall"
	KindUpdate    OpKind = "Update"
)

// ParseOpKind parses the stored form of an OpKind.
func ParseOpKind(s string) (OpKind, error) {
	switch k := OpKind(s); k {
	case KindDowngrade, KindErase, KindInstall, KindReinstall, KindUpdate:
		return k, nil
	}
	return "", fmt.Errorf("unknown operation kind %q", s)
}

// NEVRAOperation is one logged operation. For Erase, New holds the erased
// package and Old is nil. For Install, Old is nil.
type NEVRAOperation struct {
	Kind      OpKind
	New       model.PkgRef
	Old       *model.PkgRef
	Obsoleted []model.PkgRef
}

func (o NEVRAOperation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", o.Kind, o.New)
	if o.Old != nil {
		fmt.Fprintf(&b, " (from %s)", o.Old)
	}
	for _, obs := range o.Obsoleted {
		fmt.Fprintf(&b, " obsoletes %s", obs)
	}
	return b.String()
}

// Unit is one past transaction.
type Unit struct {
	ID              int64
	Begin           time.Time
	End             time.Time
	DBVersionBefore string
	DBVersionAfter  string
	Cmdline         string
	ReturnCode      int
	Ops             []NEVRAOperation

	// AlteredBeforeBase is set when the package database changed outside of
	// recorded transactions between the previous unit and this one.
	AlteredBeforeBase bool
	// AlteredAfterBase is set when it changed between this unit and the next.
	AlteredAfterBase bool
}

// Incomplete reports whether either completeness flag is set.
func (u *Unit) Incomplete() bool {
	return u.AlteredBeforeBase || u.AlteredAfterBase
}

// OperationsFromItems converts applied transaction items into log entries.
func OperationsFromItems(items []*transaction.Item) []NEVRAOperation {
	out := make([]NEVRAOperation, 0, len(items))
	for _, it := range items {
		op := NEVRAOperation{Obsoleted: append([]model.PkgRef(nil), it.Obsoleted...)}
		switch it.Op {
		case transaction.OpErase:
			op.Kind = KindErase
			op.New = *it.Erased
		case transaction.OpInstall:
			op.Kind = KindInstall
			op.New = *it.Installed
		case transaction.OpUpgrade:
			op.Kind = KindUpdate
		case transaction.OpDowngrade:
			op.Kind = KindDowngrade
		case transaction.OpReinstall:
			op.Kind = KindReinstall
		default:
			continue
		}
		if op.Kind != KindErase && op.Kind != KindInstall {
			op.New = *it.Installed
			old := *it.Erased
			op.Old = &old
		}
		out = append(out, op)
	}
	return out
}

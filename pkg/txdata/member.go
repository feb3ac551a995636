// Package txdata is the mutable working set used while a transaction is being
// planned. Members are indexed by pkgtup and by name; once planning is done
// the working set is frozen into a transaction.Transaction.
package txdata

import (
	"fmt"

	"github.com/glorpus-work/gotx/pkg/model"
)

// TSState is the operation a member asks of the installer.
type TSState string

const (
	TSInstall   TSState = "i"
	TSUpdate    TSState = "u"
	TSErase     TSState = "e"
	TSUpdated   TSState = "ud"
	TSObsoleted TSState = "od"
)

// OutputState drives the human-readable summary only.
type OutputState int

const (
	OutInstall OutputState = iota + 1
	OutUpdate
	OutErase
	OutObsoleting
	OutObsoleted
	OutUpdated
	OutFailed
)

var outputNames = map[OutputState]string{
	OutInstall:    "install",
	OutUpdate:     "update",
	OutErase:      "erase",
	OutObsoleting: "obsoleting",
	OutObsoleted:  "obsoleted",
	OutUpdated:    "updated",
	OutFailed:     "failed",
}

func (o OutputState) String() string {
	if s, ok := outputNames[o]; ok {
		return s
	}
	return fmt.Sprintf("OutputState(%d)", int(o))
}

// TransactionMember is one element of the working set.
type TransactionMember struct {
	Pkg          *model.Package
	TSState      TSState
	OutputState  OutputState
	IsDependency bool
	Reinstall    bool
	Reason       model.Reason

	Obsoletes    []model.PkgRef
	ObsoletedBy  []model.PkgRef
	Updates      []model.PkgRef
	UpdatedBy    []model.PkgRef
	Downgrades   []model.PkgRef
	DowngradedBy []model.PkgRef
	Groups       []string
}

// NewMember returns a member for pkg in the given state.
func NewMember(pkg *model.Package, state TSState, out OutputState) *TransactionMember {
	return &TransactionMember{Pkg: pkg, TSState: state, OutputState: out}
}

// Pkgtup returns the key of the member's package.
func (m *TransactionMember) Pkgtup() model.Pkgtup {
	return m.Pkg.Pkgtup()
}

// Ref returns the member's package reference.
func (m *TransactionMember) Ref() model.PkgRef {
	return m.Pkg.PkgRef
}

func (m *TransactionMember) String() string {
	return fmt.Sprintf("%s - %s (%s)", m.Pkg.PkgRef, m.OutputState, m.TSState)
}

func (m *TransactionMember) installing() bool {
	return m.TSState == TSInstall || m.TSState == TSUpdate
}

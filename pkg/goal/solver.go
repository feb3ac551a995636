//go:generate mockgen -destination=./mocks/goal.go . Solver,InstalledQuery,ReasonHistory,UpdatesQuery

package goal

import (
	"github.com/glorpus-work/gotx/pkg/model"
)

// RawReason is the solver's own classification of why a package is part of
// its result.
type RawReason string

const (
	RawUser       RawReason = "user"
	RawDependency RawReason = "dep"
	RawWeak       RawReason = "weakdep"
	RawClean      RawReason = "clean"
	RawUnknown    RawReason = "unknown"
)

// Solver is a dependency solver session. Requests are queued with Install,
// Upgrade, Erase, Downgrade and Reinstall; Run resolves them, after which the
// List methods report the decisions.
type Solver interface {
	Install(spec string) ([]model.PkgRef, error)
	Upgrade(spec string) error
	UpgradeAll() error
	Erase(spec string) error
	Downgrade(spec string) error
	Reinstall(spec string) error

	Run() error

	ListInstalls() []*model.Package
	ListUpgrades() []*model.Package
	ListDowngrades() []*model.Package
	ListReinstalls() []*model.Package
	ListErasures() []*model.Package

	// Replaced returns the installed packages of the same name pkg replaces.
	Replaced(pkg *model.Package) []*model.Package
	// Obsoleted returns the installed packages pkg obsoletes.
	Obsoleted(pkg *model.Package) []*model.Package
	Reason(pkg *model.Package) RawReason
	// MarkUserInstalled protects pkg from dependency cleanup.
	MarkUserInstalled(pkg *model.Package)
}

// InstalledQuery lists installed packages.
type InstalledQuery interface {
	Installed() []*model.Package
}

// ReasonHistory returns the reason recorded for an installed package, or
// ReasonUnknown.
type ReasonHistory interface {
	ReasonOf(ref model.PkgRef) model.Reason
}

// UpdatesQuery lists the newest available update of every installed package.
type UpdatesQuery interface {
	Upgrades() []*model.Package
}

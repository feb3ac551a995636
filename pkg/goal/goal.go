// Package goal adapts a dependency solver to the transaction model: it turns
// solver decisions into reason-tagged working set members and keeps track of
// which packages were requested by the user or by a group.
package goal

import (
	"fmt"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/txdata"
)

// Goal wraps one solver session.
type Goal struct {
	solver       Solver
	groupMembers map[string]struct{}
	requested    []string
}

// New returns a goal over solver.
func New(solver Solver) *Goal {
	return &Goal{solver: solver, groupMembers: make(map[string]struct{})}
}

// Install queues an install request. When the request comes from a group, the
// names it resolves to are remembered as group members.
func (g *Goal) Install(spec string, fromGroup bool) ([]model.PkgRef, error) {
	refs, err := g.solver.Install(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "install %s", spec)
	}
	if fromGroup {
		for _, r := range refs {
			g.groupMembers[r.Name] = struct{}{}
		}
	} else {
		g.requested = append(g.requested, spec)
	}
	return refs, nil
}

// Upgrade queues an upgrade of spec, or of everything when spec is empty.
func (g *Goal) Upgrade(spec string) error {
	if spec == "" {
		return errors.Wrap(g.solver.UpgradeAll(), "upgrade all")
	}
	g.requested = append(g.requested, spec)
	return errors.Wrapf(g.solver.Upgrade(spec), "upgrade %s", spec)
}

// Erase queues the removal of spec.
func (g *Goal) Erase(spec string) error {
	g.requested = append(g.requested, spec)
	return errors.Wrapf(g.solver.Erase(spec), "erase %s", spec)
}

// Downgrade queues a downgrade of spec.
func (g *Goal) Downgrade(spec string) error {
	g.requested = append(g.requested, spec)
	return errors.Wrapf(g.solver.Downgrade(spec), "downgrade %s", spec)
}

// Reinstall queues a reinstall of spec.
func (g *Goal) Reinstall(spec string) error {
	g.requested = append(g.requested, spec)
	return errors.Wrapf(g.solver.Reinstall(spec), "reinstall %s", spec)
}

// Requested returns the specs the user asked for directly.
func (g *Goal) Requested() []string {
	return append([]string(nil), g.requested...)
}

// IsGroupMember reports whether name was pulled in by a group request.
func (g *Goal) IsGroupMember(name string) bool {
	_, ok := g.groupMembers[name]
	return ok
}

// Run resolves the queued requests.
func (g *Goal) Run() error {
	if err := g.solver.Run(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrSolver, err)
	}
	return nil
}

// GetReason maps the solver's reason for pkg into a Reason. A package the
// solver considers user-requested is a group package when it was pulled in
// by a group request.
func (g *Goal) GetReason(pkg *model.Package) model.Reason {
	switch g.solver.Reason(pkg) {
	case RawUser:
		if g.IsGroupMember(pkg.Name) {
			return model.ReasonGroup
		}
		return model.ReasonUser
	case RawDependency:
		return model.ReasonDependency
	case RawWeak:
		return model.ReasonWeak
	default:
		return model.ReasonUnknown
	}
}

// PushUserInstalled marks every installed package whose recorded reason is
// not a dependency as a root for dependency cleanup. Packages without any
// recorded reason count as user-installed. It returns the number of roots.
func (g *Goal) PushUserInstalled(installed InstalledQuery, history ReasonHistory) int {
	n := 0
	for _, p := range installed.Installed() {
		switch history.ReasonOf(p.PkgRef) {
		case model.ReasonDependency, model.ReasonWeak:
			continue
		}
		g.solver.MarkUserInstalled(p)
		n++
	}
	logger.Debug("pushed user-installed packages", logger.Fields{"count": n})
	return n
}

// AvailableUpdatesDiff returns the updates that exist in a repository but
// that the solver did not select, minus anything being installed anyway.
func (g *Goal) AvailableUpdatesDiff(query UpdatesQuery) []*model.Package {
	selected := make(map[model.PkgRef]struct{})
	for _, p := range g.solver.ListUpgrades() {
		selected[p.PkgRef] = struct{}{}
	}
	for _, p := range g.solver.ListInstalls() {
		selected[p.PkgRef] = struct{}{}
	}

	var out []*model.Package
	for _, p := range query.Upgrades() {
		if p.IsSource() {
			continue
		}
		if _, ok := selected[p.PkgRef]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Fill records the solver's decisions in ts.
func (g *Goal) Fill(ts *txdata.TransactionData) error {
	for _, p := range g.solver.ListDowngrades() {
		old, err := g.replacedOne(p, "downgrade")
		if err != nil {
			return err
		}
		reason := g.GetReason(p)
		ts.AddDowngrade(p, old, reason)
		g.fillObsoleted(ts, p, reason)
	}
	for _, p := range g.solver.ListReinstalls() {
		old := p
		if replaced := g.solver.Replaced(p); len(replaced) > 0 {
			old = replaced[0]
		}
		reason := g.GetReason(p)
		ts.AddReinstall(p, old, reason)
		g.fillObsoleted(ts, p, reason)
	}
	for _, p := range g.solver.ListInstalls() {
		reason := g.GetReason(p)
		ts.AddInstall(p, reason)
		g.fillObsoleted(ts, p, reason)
	}
	for _, p := range g.solver.ListUpgrades() {
		old, err := g.replacedOne(p, "upgrade")
		if err != nil {
			return err
		}
		reason := g.GetReason(p)
		ts.AddUpdate(p, old, reason)
		g.fillObsoleted(ts, p, reason)
	}
	for _, p := range g.solver.ListErasures() {
		ts.AddErase(p, g.GetReason(p))
	}
	return nil
}

func (g *Goal) replacedOne(p *model.Package, what string) (*model.Package, error) {
	replaced := g.solver.Replaced(p)
	if len(replaced) == 0 {
		return nil, fmt.Errorf("%w: %s of %s replaces no installed package", errors.ErrSolver, what, p.PkgRef)
	}
	return replaced[0], nil
}

func (g *Goal) fillObsoleted(ts *txdata.TransactionData, p *model.Package, reason model.Reason) {
	for _, o := range g.solver.Obsoleted(p) {
		ts.AddObsoleting(p, o, reason)
	}
}

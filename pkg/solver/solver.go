// Package solver is the reference dependency solver of gotx. It resolves
// requests greedily by name: the newest candidate wins, requirements are
// followed depth first and satisfied by the newest provider, and nothing is
// ever backtracked. It is enough to drive the transaction core end to end
// but makes no attempt at SAT-style completeness.
package solver

import (
	"fmt"
	"slices"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/goal"
	"github.com/glorpus-work/gotx/pkg/model"
)

// Universe is the package set the solver works on. *repository.Sack
// implements it.
type Universe interface {
	Installed() []*model.Package
	Available(spec string) []*model.Package
	InstalledMatching(spec string) []*model.Package
	Newest(capability string) *model.Package
	Obsoleters(name string) []*model.Package
	Upgrades() []*model.Package
	Downgrade(inst *model.Package) *model.Package
}

type requestKind int

const (
	reqInstall requestKind = iota
	reqUpgrade
	reqUpgradeAll
	reqErase
	reqDowngrade
	reqReinstall
)

type request struct {
	kind requestKind
	pkgs []*model.Package
}

// Solver is one greedy resolution session. It implements goal.Solver.
type Solver struct {
	universe Universe
	requests []request
	user     map[model.PkgRef]struct{}

	// present is the package set the transaction leaves behind, by name.arch.
	present   map[string]*model.Package
	visiting  map[model.PkgRef]struct{}
	reasons   map[model.PkgRef]goal.RawReason
	replaced  map[model.PkgRef][]*model.Package
	obsoleted map[model.PkgRef][]*model.Package

	installs, upgrades, downgrades, reinstalls, erasures []*model.Package
}

var _ goal.Solver = (*Solver)(nil)

// New returns a solver over u.
func New(u Universe) *Solver {
	return &Solver{
		universe: u,
		user:     make(map[model.PkgRef]struct{}),
	}
}

// Install queues the newest build of every name.arch matching spec and
// returns what it picked.
func (s *Solver) Install(spec string) ([]model.PkgRef, error) {
	cands := newestPerNameArch(s.universe.Available(spec))
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: %s", errors.ErrNoMatch, spec)
	}
	s.requests = append(s.requests, request{kind: reqInstall, pkgs: cands})
	return model.Refs(cands), nil
}

// Upgrade queues an upgrade of the installed packages matching spec.
func (s *Solver) Upgrade(spec string) error {
	inst, err := s.installed(spec)
	if err != nil {
		return err
	}
	s.requests = append(s.requests, request{kind: reqUpgrade, pkgs: inst})
	return nil
}

// UpgradeAll queues an upgrade of every installed package.
func (s *Solver) UpgradeAll() error {
	s.requests = append(s.requests, request{kind: reqUpgradeAll})
	return nil
}

// Erase queues the removal of the installed packages matching spec.
func (s *Solver) Erase(spec string) error {
	inst, err := s.installed(spec)
	if err != nil {
		return err
	}
	s.requests = append(s.requests, request{kind: reqErase, pkgs: inst})
	return nil
}

// Downgrade queues a downgrade of the installed packages matching spec to
// the next older available build.
func (s *Solver) Downgrade(spec string) error {
	inst, err := s.installed(spec)
	if err != nil {
		return err
	}
	var targets []*model.Package
	for _, p := range inst {
		older := s.universe.Downgrade(p)
		if older == nil {
			return &errors.PackagesNotAvailableError{Specs: []string{"older version of " + p.String()}}
		}
		targets = append(targets, older)
	}
	s.requests = append(s.requests, request{kind: reqDowngrade, pkgs: targets})
	return nil
}

// Reinstall queues a reinstall of the installed packages matching spec from
// the identical repository build.
func (s *Solver) Reinstall(spec string) error {
	inst, err := s.installed(spec)
	if err != nil {
		return err
	}
	var targets []*model.Package
	for _, p := range inst {
		avail := s.universe.Available(p.String())
		i := slices.IndexFunc(avail, func(a *model.Package) bool { return a.PkgRef == p.PkgRef })
		if i < 0 {
			return &errors.PackagesNotAvailableError{Specs: []string{p.String()}}
		}
		targets = append(targets, avail[i])
	}
	s.requests = append(s.requests, request{kind: reqReinstall, pkgs: targets})
	return nil
}

func (s *Solver) installed(spec string) ([]*model.Package, error) {
	inst := s.universe.InstalledMatching(spec)
	if len(inst) == 0 {
		return nil, &errors.PackagesNotInstalledError{Specs: []string{spec}}
	}
	return inst, nil
}

// MarkUserInstalled protects pkg from dependency cleanup.
func (s *Solver) MarkUserInstalled(pkg *model.Package) {
	s.user[pkg.PkgRef] = struct{}{}
}

// Run resolves the queued requests in order.
func (s *Solver) Run() error {
	s.reset()
	cleanup := false
	for _, r := range s.requests {
		var err error
		switch r.kind {
		case reqInstall:
			for _, p := range r.pkgs {
				if err = s.install(p, goal.RawUser); err != nil {
					break
				}
			}
		case reqUpgrade:
			err = s.upgradeInstalled(r.pkgs)
		case reqUpgradeAll:
			err = s.upgradeInstalled(s.universe.Installed())
		case reqErase:
			for _, p := range r.pkgs {
				s.erase(p, goal.RawUser)
			}
			cleanup = true
		case reqDowngrade:
			for _, p := range r.pkgs {
				if err = s.replace(p, goal.RawUser); err != nil {
					break
				}
			}
		case reqReinstall:
			for _, p := range r.pkgs {
				s.reinstall(p)
			}
		}
		if err != nil {
			return err
		}
	}
	s.eraseBroken()
	if cleanup && len(s.user) > 0 {
		s.cleanDependencies()
	}
	logger.Debug("solver finished", logger.Fields{
		"install":   len(s.installs),
		"upgrade":   len(s.upgrades),
		"downgrade": len(s.downgrades),
		"reinstall": len(s.reinstalls),
		"erase":     len(s.erasures),
	})
	return nil
}

func (s *Solver) reset() {
	s.present = make(map[string]*model.Package)
	for _, p := range s.universe.Installed() {
		s.present[p.NA()] = p
	}
	s.visiting = make(map[model.PkgRef]struct{})
	s.reasons = make(map[model.PkgRef]goal.RawReason)
	s.replaced = make(map[model.PkgRef][]*model.Package)
	s.obsoleted = make(map[model.PkgRef][]*model.Package)
	s.installs, s.upgrades, s.downgrades, s.reinstalls, s.erasures = nil, nil, nil, nil, nil
}

func (s *Solver) upgradeInstalled(pkgs []*model.Package) error {
	updates := make(map[string]*model.Package)
	for _, u := range s.universe.Upgrades() {
		updates[u.NA()] = u
	}
	for _, p := range pkgs {
		u, ok := updates[p.NA()]
		if !ok {
			logger.Debug("no update available", logger.Fields{"package": p.String()})
			continue
		}
		if err := s.replace(u, s.reasonOr(p, goal.RawUser)); err != nil {
			return err
		}
	}
	for _, p := range pkgs {
		if s.present[p.NA()] != p {
			continue
		}
		for _, o := range s.universe.Obsoleters(p.Name) {
			if _, ok := s.present[o.NA()]; ok || o.Name == p.Name {
				continue
			}
			if err := s.install(o, s.reasonOr(p, goal.RawDependency)); err != nil {
				return err
			}
		}
	}
	return nil
}

// reasonOr keeps the reason already decided for an installed package.
func (s *Solver) reasonOr(p *model.Package, def goal.RawReason) goal.RawReason {
	if _, ok := s.user[p.PkgRef]; ok {
		return goal.RawUser
	}
	return def
}

// install adds p, turning it into an upgrade or a downgrade when another
// build of the same name.arch is present.
func (s *Solver) install(p *model.Package, reason goal.RawReason) error {
	if cur, ok := s.present[p.NA()]; ok {
		if cur.PkgRef == p.PkgRef {
			logger.Debug("already installed", logger.Fields{"package": p.String()})
			return nil
		}
		return s.replace(p, reason)
	}
	if _, ok := s.visiting[p.PkgRef]; ok {
		return nil
	}
	s.visiting[p.PkgRef] = struct{}{}
	s.present[p.NA()] = p
	s.reasons[p.PkgRef] = reason
	s.obsolete(p)
	if err := s.requirements(p); err != nil {
		return err
	}
	s.installs = append(s.installs, p)
	return nil
}

// replace swaps the present build of p's name.arch for p.
func (s *Solver) replace(p *model.Package, reason goal.RawReason) error {
	cur, ok := s.present[p.NA()]
	if !ok {
		return s.install(p, reason)
	}
	if _, ok := s.visiting[p.PkgRef]; ok {
		return nil
	}
	s.visiting[p.PkgRef] = struct{}{}
	s.present[p.NA()] = p
	s.reasons[p.PkgRef] = reason
	s.replaced[p.PkgRef] = []*model.Package{cur}
	s.obsolete(p)
	if err := s.requirements(p); err != nil {
		return err
	}
	if model.Newer(p.PkgRef, cur.PkgRef) {
		s.upgrades = append(s.upgrades, p)
	} else {
		s.downgrades = append(s.downgrades, p)
	}
	return nil
}

func (s *Solver) reinstall(p *model.Package) {
	s.reasons[p.PkgRef] = goal.RawUser
	if cur, ok := s.present[p.NA()]; ok {
		s.replaced[p.PkgRef] = []*model.Package{cur}
	}
	s.reinstalls = append(s.reinstalls, p)
}

// obsolete removes the present packages p obsoletes.
func (s *Solver) obsolete(p *model.Package) {
	for na, cur := range s.present {
		if cur == p || !p.ObsoletesName(cur.Name) || !cur.Installed() {
			continue
		}
		delete(s.present, na)
		s.obsoleted[p.PkgRef] = append(s.obsoleted[p.PkgRef], cur)
	}
	slices.SortFunc(s.obsoleted[p.PkgRef], func(a, b *model.Package) int { return model.Compare(a.PkgRef, b.PkgRef) })
}

// requirements pulls in a provider for every requirement of p that nothing
// present satisfies. Providers are queued before p.
func (s *Solver) requirements(p *model.Package) error {
	for _, c := range p.RequiredCaps() {
		if s.provided(c) {
			continue
		}
		dep := s.universe.Newest(c)
		if dep == nil {
			return fmt.Errorf("%w: nothing provides %s needed by %s", errors.ErrSolver, c, p)
		}
		if err := s.install(dep, goal.RawDependency); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) provided(capability string) bool {
	for _, p := range s.present {
		if p.ProvidesCap(capability) {
			return true
		}
	}
	return false
}

func (s *Solver) erase(p *model.Package, reason goal.RawReason) {
	cur, ok := s.present[p.NA()]
	if !ok || cur.PkgRef != p.PkgRef {
		return
	}
	delete(s.present, p.NA())
	s.reasons[p.PkgRef] = reason
	s.erasures = append(s.erasures, p)
}

// eraseBroken removes installed packages whose requirements are gone.
func (s *Solver) eraseBroken() {
	for changed := true; changed; {
		changed = false
		for _, p := range sortedPresent(s.present) {
			if !p.Installed() {
				continue
			}
			for _, c := range p.RequiredCaps() {
				if !s.provided(c) {
					s.erase(p, goal.RawDependency)
					changed = true
					break
				}
			}
		}
	}
}

// cleanDependencies erases installed packages that no user-installed
// package needs any more.
func (s *Solver) cleanDependencies() {
	needed := make(map[model.PkgRef]struct{})
	var mark func(p *model.Package)
	mark = func(p *model.Package) {
		if _, ok := needed[p.PkgRef]; ok {
			return
		}
		needed[p.PkgRef] = struct{}{}
		for _, c := range p.RequiredCaps() {
			for _, q := range sortedPresent(s.present) {
				if q.ProvidesCap(c) {
					mark(q)
				}
			}
		}
	}
	for _, p := range sortedPresent(s.present) {
		if _, user := s.user[p.PkgRef]; user || !p.Installed() {
			mark(p)
		}
	}
	for _, p := range sortedPresent(s.present) {
		if _, ok := needed[p.PkgRef]; !ok {
			s.erase(p, goal.RawClean)
		}
	}
}

func sortedPresent(present map[string]*model.Package) []*model.Package {
	out := make([]*model.Package, 0, len(present))
	for _, p := range present {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *model.Package) int { return model.Compare(a.PkgRef, b.PkgRef) })
	return out
}

func newestPerNameArch(pkgs []*model.Package) []*model.Package {
	best := make(map[string]*model.Package)
	var order []string
	for _, p := range pkgs {
		cur, ok := best[p.NA()]
		if !ok {
			order = append(order, p.NA())
		}
		if !ok || model.Newer(p.PkgRef, cur.PkgRef) {
			best[p.NA()] = p
		}
	}
	out := make([]*model.Package, 0, len(order))
	for _, na := range order {
		out = append(out, best[na])
	}
	return out
}

func (s *Solver) ListInstalls() []*model.Package   { return slices.Clone(s.installs) }
func (s *Solver) ListUpgrades() []*model.Package   { return slices.Clone(s.upgrades) }
func (s *Solver) ListDowngrades() []*model.Package { return slices.Clone(s.downgrades) }
func (s *Solver) ListReinstalls() []*model.Package { return slices.Clone(s.reinstalls) }
func (s *Solver) ListErasures() []*model.Package   { return slices.Clone(s.erasures) }

// Replaced returns the installed package p replaces.
func (s *Solver) Replaced(p *model.Package) []*model.Package {
	return slices.Clone(s.replaced[p.PkgRef])
}

// Obsoleted returns the installed packages p obsoletes.
func (s *Solver) Obsoleted(p *model.Package) []*model.Package {
	return slices.Clone(s.obsoleted[p.PkgRef])
}

// Reason returns why p is part of the result.
func (s *Solver) Reason(p *model.Package) goal.RawReason {
	if r, ok := s.reasons[p.PkgRef]; ok {
		return r
	}
	return goal.RawUnknown
}

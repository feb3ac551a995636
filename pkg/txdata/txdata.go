package txdata

import (
	"slices"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// PackageLookup searches installed and available packages.
type PackageLookup interface {
	Search(pattern string) []*model.Package
}

// TransactionData is the working set. It is not safe for concurrent use.
type TransactionData struct {
	pkgdict map[model.Pkgtup][]*TransactionMember
	byName  map[string][]*TransactionMember
	order   []*TransactionMember

	// conditionals maps a trigger package name to the packages a group asks
	// to be installed once the trigger is.
	conditionals map[string][]*model.Package
}

// New returns an empty working set.
func New() *TransactionData {
	return &TransactionData{
		pkgdict:      make(map[model.Pkgtup][]*TransactionMember),
		byName:       make(map[string][]*TransactionMember),
		conditionals: make(map[string][]*model.Package),
	}
}

// Len returns the number of members.
func (t *TransactionData) Len() int {
	return len(t.order)
}

// Add inserts m. Adding a member whose pkgtup already has a member in the
// same TSState is a no-op that returns the existing member.
func (t *TransactionData) Add(m *TransactionMember) *TransactionMember {
	tup := m.Pkgtup()
	for _, existing := range t.pkgdict[tup] {
		if existing.TSState == m.TSState {
			return existing
		}
	}
	t.pkgdict[tup] = append(t.pkgdict[tup], m)
	t.byName[m.Pkg.Name] = append(t.byName[m.Pkg.Name], m)
	t.order = append(t.order, m)
	m.Pkg.State = string(m.TSState)
	return m
}

// Remove drops every member of tup and clears the state of their package
// handles. Removing an absent pkgtup is a no-op.
func (t *TransactionData) Remove(tup model.Pkgtup) []*TransactionMember {
	members, ok := t.pkgdict[tup]
	if !ok {
		return nil
	}
	delete(t.pkgdict, tup)
	for _, m := range members {
		m.Pkg.State = ""
		t.byName[tup.Name] = slices.DeleteFunc(t.byName[tup.Name], func(x *TransactionMember) bool { return x == m })
		t.order = slices.DeleteFunc(t.order, func(x *TransactionMember) bool { return x == m })
	}
	if len(t.byName[tup.Name]) == 0 {
		delete(t.byName, tup.Name)
	}
	return members
}

// Exists reports whether tup has any member.
func (t *TransactionData) Exists(tup model.Pkgtup) bool {
	_, ok := t.pkgdict[tup]
	return ok
}

// GetMembers returns all members in insertion order.
func (t *TransactionData) GetMembers() []*TransactionMember {
	return slices.Clone(t.order)
}

// GetMembersOf returns the members of tup.
func (t *TransactionData) GetMembersOf(tup model.Pkgtup) []*TransactionMember {
	return slices.Clone(t.pkgdict[tup])
}

// GetMembersByName returns the members whose package has the given name.
func (t *TransactionData) GetMembersByName(name string) []*TransactionMember {
	return slices.Clone(t.byName[name])
}

// GetMembersWithState returns members in any of the given states, all members
// when no state is given.
func (t *TransactionData) GetMembersWithState(states ...TSState) []*TransactionMember {
	if len(states) == 0 {
		return t.GetMembers()
	}
	var out []*TransactionMember
	for _, m := range t.order {
		if slices.Contains(states, m.TSState) {
			out = append(out, m)
		}
	}
	return out
}

// MatchNaevr returns the members matching every non-empty field. A nil epoch
// matches any epoch.
func (t *TransactionData) MatchNaevr(name, arch string, epoch *uint, ver, rel string) []*TransactionMember {
	candidates := t.order
	if name != "" {
		candidates = t.byName[name]
	}
	var out []*TransactionMember
	for _, m := range candidates {
		r := m.Ref()
		if arch != "" && r.Arch != arch {
			continue
		}
		if epoch != nil && r.Epoch != *epoch {
			continue
		}
		if ver != "" && r.Version != ver {
			continue
		}
		if rel != "" && r.Release != rel {
			continue
		}
		out = append(out, m)
	}
	return out
}

// AddInstall records a fresh install of po.
func (t *TransactionData) AddInstall(po *model.Package, reason model.Reason) *TransactionMember {
	m := NewMember(po, TSInstall, OutInstall)
	m.Reason = reason
	m.IsDependency = reason == model.ReasonDependency || reason == model.ReasonWeak
	return t.Add(m)
}

// AddUpdate records po replacing the older installed oldpo.
func (t *TransactionData) AddUpdate(po, oldpo *model.Package, reason model.Reason) *TransactionMember {
	m := NewMember(po, TSUpdate, OutUpdate)
	m.Reason = reason
	m.IsDependency = reason == model.ReasonDependency || reason == model.ReasonWeak
	m = t.Add(m)
	m.Updates = appendRef(m.Updates, oldpo.PkgRef)

	old := t.Add(NewMember(oldpo, TSUpdated, OutUpdated))
	old.UpdatedBy = appendRef(old.UpdatedBy, po.PkgRef)
	return m
}

// AddErase records the removal of po.
func (t *TransactionData) AddErase(po *model.Package, reason model.Reason) *TransactionMember {
	m := NewMember(po, TSErase, OutErase)
	m.Reason = reason
	m.IsDependency = reason == model.ReasonDependency
	return t.Add(m)
}

// AddObsoleting records po obsoleting the installed oldpo. po keeps an
// existing install or update member if it has one.
func (t *TransactionData) AddObsoleting(po, oldpo *model.Package, reason model.Reason) *TransactionMember {
	var m *TransactionMember
	for _, existing := range t.pkgdict[po.Pkgtup()] {
		if existing.installing() {
			m = existing
			m.Reason = model.MaxByPrecedence(m.Reason, reason)
			break
		}
	}
	if m == nil {
		m = NewMember(po, TSUpdate, OutObsoleting)
		m.Reason = reason
		m = t.Add(m)
	}
	m.Obsoletes = appendRef(m.Obsoletes, oldpo.PkgRef)

	old := t.Add(NewMember(oldpo, TSObsoleted, OutObsoleted))
	old.ObsoletedBy = appendRef(old.ObsoletedBy, po.PkgRef)
	return m
}

// AddReinstall records po replacing the identical installed build oldpo. It
// adds both an erase and an install member for the same pkgtup.
func (t *TransactionData) AddReinstall(po, oldpo *model.Package, reason model.Reason) *TransactionMember {
	old := t.Add(NewMember(oldpo, TSErase, OutErase))
	old.Reinstall = true

	m := NewMember(po, TSInstall, OutInstall)
	m.Reason = reason
	m = t.Add(m)
	m.Reinstall = true
	return m
}

// AddDowngrade records po replacing the newer installed oldpo.
func (t *TransactionData) AddDowngrade(po, oldpo *model.Package, reason model.Reason) *TransactionMember {
	m := NewMember(po, TSInstall, OutInstall)
	m.Reason = reason
	m = t.Add(m)
	m.Downgrades = appendRef(m.Downgrades, oldpo.PkgRef)

	old := t.Add(NewMember(oldpo, TSErase, OutErase))
	old.DowngradedBy = appendRef(old.DowngradedBy, po.PkgRef)
	return m
}

// AddGroupMember tags every member of tup as belonging to group. It reports
// whether tup had any member.
func (t *TransactionData) AddGroupMember(tup model.Pkgtup, group string) bool {
	members := t.pkgdict[tup]
	for _, m := range members {
		if !slices.Contains(m.Groups, group) {
			m.Groups = append(m.Groups, group)
		}
	}
	return len(members) > 0
}

// AddConditional queues po for installation once trigger is installed.
func (t *TransactionData) AddConditional(trigger string, po *model.Package) {
	t.conditionals[trigger] = append(t.conditionals[trigger], po)
}

// Conditionals returns the packages queued behind trigger.
func (t *TransactionData) Conditionals(trigger string) []*model.Package {
	return slices.Clone(t.conditionals[trigger])
}

// Deselect removes every member matching pattern and returns them. An exact
// match against member names and NEVRAs wins; otherwise the pattern is
// resolved through lookup and, when it is a glob, matched against members
// directly. The matched packages are also dropped from the conditional
// installs so that nothing re-adds them later.
func (t *TransactionData) Deselect(pattern string, lookup PackageLookup) []*TransactionMember {
	tups := make(map[model.Pkgtup]struct{})
	for _, m := range t.order {
		if m.Ref().ExactMatch(pattern) {
			tups[m.Pkgtup()] = struct{}{}
		}
	}
	if len(tups) == 0 {
		if lookup != nil {
			for _, p := range lookup.Search(pattern) {
				tups[p.Pkgtup()] = struct{}{}
			}
		}
		if model.IsGlob(pattern) {
			for _, m := range t.order {
				if m.Ref().GlobMatch(pattern) {
					tups[m.Pkgtup()] = struct{}{}
				}
			}
		}
	}

	var removed []*TransactionMember
	for _, m := range slices.Clone(t.order) {
		tup := m.Pkgtup()
		if _, ok := tups[tup]; ok {
			removed = append(removed, t.Remove(tup)...)
		}
	}

	for trigger, pkgs := range t.conditionals {
		pkgs = slices.DeleteFunc(pkgs, func(p *model.Package) bool {
			_, ok := tups[p.Pkgtup()]
			return ok
		})
		if len(pkgs) == 0 {
			delete(t.conditionals, trigger)
		} else {
			t.conditionals[trigger] = pkgs
		}
	}
	return removed
}

// Freeze turns the working set into an executable transaction, in member
// insertion order. The old sides of updates, downgrades, reinstalls and
// obsoletions travel with the member that replaces them.
func (t *TransactionData) Freeze() (*transaction.Transaction, error) {
	tx := transaction.New()
	for _, m := range t.order {
		var (
			item *transaction.Item
			err  error
		)
		ref := m.Ref()
		switch {
		case m.installing() && m.Reinstall:
			item, err = tx.AddReinstall(ref, ref, m.Obsoletes)
		case m.installing() && len(m.Downgrades) > 0:
			item, err = tx.AddDowngrade(ref, m.Downgrades[0], m.Obsoletes)
		case m.installing() && len(m.Updates) > 0:
			item, err = tx.AddUpgrade(ref, m.Updates[0], m.Obsoletes)
		case m.installing():
			item, err = tx.AddInstall(ref, m.Obsoletes, m.Reason)
		case m.TSState == TSErase && !m.Reinstall && len(m.DowngradedBy) == 0:
			item, err = tx.AddErase(ref)
		default:
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "freeze %s", m)
		}
		item.Reason = m.Reason
	}
	return tx, nil
}

func appendRef(refs []model.PkgRef, r model.PkgRef) []model.PkgRef {
	if slices.Contains(refs, r) {
		return refs
	}
	return append(refs, r)
}

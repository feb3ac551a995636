package history

import (
	"github.com/glorpus-work/gotx/pkg/model"
)

// chain follows one package slot (a name.arch) through a sequence of
// operations: what was installed before the first of them and what is left
// after the last.
type chain struct {
	before       *model.PkgRef
	after        *model.PkgRef
	allReinstall bool
	obsoletedBy  *chain
}

type merger struct {
	chains []*chain
}

func (m *merger) byAfter(ref model.PkgRef) *chain {
	for i := len(m.chains) - 1; i >= 0; i-- {
		c := m.chains[i]
		if c.after != nil && *c.after == ref {
			return c
		}
	}
	return nil
}

// vacated finds a slot of the same name.arch whose package is gone.
func (m *merger) vacated(ref model.PkgRef) *chain {
	for i := len(m.chains) - 1; i >= 0; i-- {
		c := m.chains[i]
		if c.after != nil {
			continue
		}
		if c.before != nil && model.SameNameArch(*c.before, ref) {
			return c
		}
	}
	return nil
}

func (m *merger) start(before, after *model.PkgRef, reinstall bool) *chain {
	c := &chain{before: before, after: after, allReinstall: reinstall}
	m.chains = append(m.chains, c)
	return c
}

// replace moves the slot holding old (or a new slot) to newRef.
func (m *merger) replace(old, newRef model.PkgRef, reinstall bool) *chain {
	c := m.byAfter(old)
	if c == nil {
		return m.start(ptr(old), ptr(newRef), reinstall)
	}
	c.after = ptr(newRef)
	c.obsoletedBy = nil
	if !reinstall {
		c.allReinstall = false
	}
	return c
}

func (m *merger) remove(ref model.PkgRef, by *chain) {
	c := m.byAfter(ref)
	if c == nil {
		c = m.start(ptr(ref), nil, false)
	}
	c.after = nil
	c.allReinstall = false
	c.obsoletedBy = by
}

func (m *merger) apply(op NEVRAOperation) {
	var c *chain
	switch op.Kind {
	case KindInstall:
		if c = m.vacated(op.New); c != nil {
			c.after = ptr(op.New)
			c.obsoletedBy = nil
			c.allReinstall = false
		} else {
			c = m.start(nil, ptr(op.New), false)
		}
	case KindErase:
		m.remove(op.New, nil)
		return
	case KindUpdate, KindDowngrade:
		old := op.New
		if op.Old != nil {
			old = *op.Old
		}
		c = m.replace(old, op.New, false)
	case KindReinstall:
		old := op.New
		if op.Old != nil {
			old = *op.Old
		}
		c = m.replace(old, op.New, true)
	default:
		return
	}
	for _, obs := range op.Obsoleted {
		m.remove(obs, c)
	}
}

// MergeOperations folds the operations of consecutive units into the minimal
// list with the same net effect. Later operations win: a package installed
// and then erased within the range disappears, an upgrade followed by
// another collapses into one, and a package that ends where it started
// vanishes unless it was only ever reinstalled.
func MergeOperations(units ...*Unit) []NEVRAOperation {
	m := &merger{}
	for _, u := range units {
		for _, op := range u.Ops {
			m.apply(op)
		}
	}

	ops := make([]NEVRAOperation, 0, len(m.chains))
	index := make(map[*chain]int)
	for _, c := range m.chains {
		op, ok := c.emit()
		if !ok {
			continue
		}
		index[c] = len(ops)
		ops = append(ops, op)
	}

	for _, c := range m.chains {
		if c.before == nil || c.after != nil {
			continue
		}
		if c.obsoletedBy != nil {
			if i, ok := index[c.obsoletedBy]; ok && ops[i].Kind != KindErase {
				ops[i].Obsoleted = append(ops[i].Obsoleted, *c.before)
				continue
			}
		}
		ops = append(ops, NEVRAOperation{Kind: KindErase, New: *c.before})
	}
	return ops
}

// emit returns the net operation of a slot that still holds a package.
// Vacated slots are handled by MergeOperations.
func (c *chain) emit() (NEVRAOperation, bool) {
	switch {
	case c.after == nil:
		return NEVRAOperation{}, false
	case c.before == nil:
		return NEVRAOperation{Kind: KindInstall, New: *c.after}, true
	}
	old := *c.before
	cmp := model.CompareEVR(*c.after, old)
	switch {
	case *c.after == old:
		if c.allReinstall {
			return NEVRAOperation{Kind: KindReinstall, New: *c.after, Old: &old}, true
		}
		return NEVRAOperation{}, false
	case cmp > 0:
		return NEVRAOperation{Kind: KindUpdate, New: *c.after, Old: &old}, true
	case cmp < 0:
		return NEVRAOperation{Kind: KindDowngrade, New: *c.after, Old: &old}, true
	default:
		// Same EVR but a different name or arch: an obsoletion-like swap.
		return NEVRAOperation{Kind: KindUpdate, New: *c.after, Old: &old}, true
	}
}

func ptr(r model.PkgRef) *model.PkgRef {
	return &r
}

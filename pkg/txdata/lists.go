package txdata

import (
	"slices"

	"github.com/glorpus-work/gotx/pkg/model"
)

// Lists buckets the working set for the transaction summary.
type Lists struct {
	Installed    []*TransactionMember
	Updated      []*TransactionMember
	Removed      []*TransactionMember
	Obsoleted    []*TransactionMember
	DepInstalled []*TransactionMember
	DepUpdated   []*TransactionMember
	DepRemoved   []*TransactionMember
	Reinstalled  []*TransactionMember
	Downgraded   []*TransactionMember
	Failed       []*TransactionMember
}

// MakeLists projects the members into summary buckets. Reinstalls and
// downgrades get their own buckets only when asked for; otherwise they are
// reported as plain installs and removals.
func (t *TransactionData) MakeLists(includeReinstall, includeDowngrade bool) Lists {
	var l Lists
	for _, m := range t.order {
		switch m.OutputState {
		case OutUpdate:
			if m.IsDependency {
				l.DepUpdated = append(l.DepUpdated, m)
			} else {
				l.Updated = append(l.Updated, m)
			}
		case OutInstall:
			switch {
			case includeReinstall && m.Reinstall:
				l.Reinstalled = append(l.Reinstalled, m)
			case includeDowngrade && len(m.Downgrades) > 0:
				l.Downgraded = append(l.Downgraded, m)
			case m.IsDependency && len(m.Groups) == 0:
				l.DepInstalled = append(l.DepInstalled, m)
			default:
				l.Installed = append(l.Installed, m)
			}
		case OutErase:
			if includeReinstall && m.Reinstall {
				continue
			}
			if includeDowngrade && len(m.DowngradedBy) > 0 {
				continue
			}
			if m.IsDependency {
				l.DepRemoved = append(l.DepRemoved, m)
			} else {
				l.Removed = append(l.Removed, m)
			}
		case OutObsoleted:
			l.Obsoleted = append(l.Obsoleted, m)
		case OutObsoleting:
			l.Installed = append(l.Installed, m)
		case OutFailed:
			l.Failed = append(l.Failed, m)
		}
	}
	for _, bucket := range []*[]*TransactionMember{
		&l.Installed, &l.Updated, &l.Removed, &l.Obsoleted, &l.DepInstalled,
		&l.DepUpdated, &l.DepRemoved, &l.Reinstalled, &l.Downgraded, &l.Failed,
	} {
		slices.SortStableFunc(*bucket, func(a, b *TransactionMember) int {
			return model.Compare(a.Ref(), b.Ref())
		})
	}
	return l
}

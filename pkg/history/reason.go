package history

import (
	"slices"

	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// ReasonLookup returns the recorded reason of a package, or ReasonUnknown.
type ReasonLookup interface {
	ReasonOf(ref model.PkgRef) model.Reason
}

// PropagatedReason returns the reason to record for the package item
// installs. A user reason is final. Packages named in alwaysUser are always
// user-installed. Replacements inherit the reason of the package they
// replace, and obsoleting installs the strongest reason among what they
// obsolete.
func PropagatedReason(item *transaction.Item, history ReasonLookup, alwaysUser []string) model.Reason {
	if item.Reason == model.ReasonUser {
		return model.ReasonUser
	}
	if item.Installed != nil && slices.Contains(alwaysUser, item.Installed.Name) {
		return model.ReasonUser
	}

	switch item.Op {
	case transaction.OpDowngrade, transaction.OpErase, transaction.OpReinstall, transaction.OpUpgrade:
		if item.Erased != nil {
			if prev := history.ReasonOf(*item.Erased); prev != model.ReasonUnknown {
				return prev
			}
		}
	}

	if len(item.Obsoleted) > 0 {
		reasons := make([]model.Reason, 0, len(item.Obsoleted))
		for _, obs := range item.Obsoleted {
			reasons = append(reasons, history.ReasonOf(obs))
		}
		if best := model.MaxByPrecedence(reasons...); best != model.ReasonUnknown {
			return best
		}
	}
	return item.Reason
}

// RecordReasons updates the reason table for applied items: installed
// packages get their propagated reason, removed ones are forgotten.
func RecordReasons(store Store, items []*transaction.Item, alwaysUser []string) error {
	for _, it := range items {
		reason := PropagatedReason(it, store, alwaysUser)
		for _, r := range it.Removes() {
			if it.Installed != nil && *it.Installed == r {
				continue
			}
			if err := store.DeleteReason(r); err != nil {
				return err
			}
		}
		if it.Installed != nil {
			if err := store.SetReason(*it.Installed, reason); err != nil {
				return err
			}
		}
	}
	return nil
}

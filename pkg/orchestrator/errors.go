package orchestrator

import (
	"fmt"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// FailedItemsError reports the items the installer could not apply. The
// applied remainder has been recorded.
type FailedItemsError struct {
	Failed []transaction.ItemError
	Total  int
}

func (e *FailedItemsError) Error() string {
	return fmt.Sprintf("%s: %d of %d item(s) failed", errors.ErrTransactionIncomplete, len(e.Failed), e.Total)
}

// Is matches ErrTransactionIncomplete.
func (e *FailedItemsError) Is(target error) bool { return target == errors.ErrTransactionIncomplete }

// Details lists "package: message" per failed item.
func (e *FailedItemsError) Details() []string {
	out := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		out = append(out, fmt.Sprintf("%s: %s", f.Ref, f.Message))
	}
	return out
}

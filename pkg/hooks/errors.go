package hooks

import (
	"fmt"

	"github.com/glorpus-work/gotx/pkg/errors"
)

// Common hooks errors.
var (
	// ErrHookTypeEmpty is returned when a hooks type is empty.
	ErrHookTypeEmpty = fmt.Errorf("hooks type cannot be empty")

	// ErrHookLoad is returned when there's an error loading a hooks.
	ErrHookLoad = fmt.Errorf("failed to load hooks")
)

// ErrUnsupportedHookType is returned when a hook type is not one of the
// transaction hook types.
func ErrUnsupportedHookType(t HookType) error {
	return errors.Wrapf(errors.ErrHookExecution, "unsupported hooks type: %s", t)
}

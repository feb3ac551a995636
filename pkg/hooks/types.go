package hooks

// HookType represents the type of hooks.
type HookType string

// Supported hooks types.
const (
	PreTransaction  HookType = "pre-transaction"
	PostTransaction HookType = "post-transaction"
)

// Hook represents a hooks script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// Entry is one transaction item as seen by a script.
type Entry struct {
	Op        string
	Installed string
	Erased    string
	Obsoleted []string
}

// HookContext contains information passed to hooks.
type HookContext struct {
	TransactionID string
	RootDir       string
	Entries       []Entry
	// ReturnCode is the installer's return code; only meaningful for
	// post-transaction hooks.
	ReturnCode int
	Vars       map[string]interface{}
}

// HookManager defines the interface for managing hooks.
type HookManager interface {
	// Execute runs the specified hooks type with the given context
	Execute(hookType HookType, ctx HookContext) error

	// AddHook adds a new hooks
	AddHook(hook Hook) error

	// RemoveHook removes a hooks of the specified type
	RemoveHook(hookType HookType) error

	// HasHook checks if a hooks of the specified type exists
	HasHook(hookType HookType) bool
}

func validType(t HookType) bool {
	return t == PreTransaction || t == PostTransaction
}

//go:generate mockgen -destination=./mocks/orchestrator.go . Downloader,Prompter,SignatureVerifier,HookRunner,Reporter

package orchestrator

import (
	"context"
	"time"

	"github.com/glorpus-work/gotx/pkg/download"
	"github.com/glorpus-work/gotx/pkg/hooks"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/signature"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// Downloader handles package downloading.
type Downloader interface {
	FetchAll(ctx context.Context, items []download.Item, opts download.Options) (map[string]string, error)
}

// PackageSource resolves the packages of a transaction to repository
// metadata (location, checksum, size).
type PackageSource interface {
	Package(ref model.PkgRef) (*model.Package, bool)
}

// Prompter asks the user. Both methods block until answered.
type Prompter interface {
	Confirm(question string) (bool, error)
	ConfirmKeyImport(key signature.Result, pkg *model.Package) (bool, error)
}

// SignatureVerifier checks downloaded packages.
type SignatureVerifier interface {
	Verify(pkg *model.Package, path string) signature.Result
	Import(res signature.Result) error
}

// HookRunner executes transaction scripts.
type HookRunner interface {
	Execute(hookType hooks.HookType, ctx hooks.HookContext) error
}

// Reporter delivers the outcome of a commit (console, mail, command).
type Reporter interface {
	Report(ctx context.Context, res *Result) error
}

// Phase is a state of the commit pipeline. Each state is announced once it
// has been reached.
type Phase string

const (
	PhasePlanned           Phase = "planned"
	PhaseSizeReported      Phase = "size-reported"
	PhaseConfirmed         Phase = "confirmed"
	PhaseDownloaded        Phase = "downloaded"
	PhaseSignaturesChecked Phase = "signatures-checked"
	PhaseRpmCheckPassed    Phase = "rpm-check-passed"
	PhaseTestPassed        Phase = "test-passed"
	PhaseReordered         Phase = "reordered"
	PhaseCommitted         Phase = "committed"
	PhaseReported          Phase = "reported"
	PhaseError             Phase = "error"

	// PhaseSyncing is announced by SyncAll.
	PhaseSyncing Phase = "syncing"
)

// Event represents a simple progress notification.
type Event struct {
	Phase Phase
	ID    string // transaction id
	Msg   string
}

// Hooks carries callbacks for progress events.
type Hooks struct {
	OnEvent func(Event)
}

// Result codes, as surfaced to the process exit status.
const (
	CodeNothingToDo = -1
	CodeSuccess     = 0
	CodeFatal       = 1
	// CodePending means the caller must act (confirm) before anything happens.
	CodePending = 2
)

// ReplanFunc rebuilds the transaction from a fresh working set. It is called
// before execution when the transaction contains reinstalls.
type ReplanFunc func() (*transaction.Transaction, error)

// Options control one Commit.
type Options struct {
	AssumeYes bool
	AssumeNo  bool
	GPGCheck  bool

	CacheDir    string
	Concurrency int
	// KeepCache keeps downloaded packages after a successful commit.
	KeepCache bool

	// AlwaysUser names packages always recorded as user-installed.
	AlwaysUser []string
	Cmdline    string
	RootDir    string

	Replan ReplanFunc
	// MetricsTextfile, when set, receives the metrics after every commit.
	MetricsTextfile string
}

// Result describes one Commit.
type Result struct {
	ID    string
	Code  int
	Phase Phase

	Transaction  *transaction.Transaction
	Applied      []*transaction.Item
	Failed       []transaction.ItemError
	UnitID       int64
	DownloadSize int64
	RemoveOnly   int

	Begin time.Time
	End   time.Time
}

// Succeeded reports whether every item was applied.
func (r *Result) Succeeded() bool {
	return r != nil && r.Code == CodeSuccess
}

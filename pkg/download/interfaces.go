package download

import (
	"context"
	"net/url"

	"github.com/glorpus-work/gotx/pkg/auth"
)

// Manager downloads remote resources (repository indexes, packages,
// signatures) into a cache directory.
type Manager interface {
	// FetchAll downloads every item, respecting Options. It always tries all
	// items: the returned map holds the local path of each item that was
	// fetched, and the error, when not nil, is an *errors.DownloadError naming
	// every item that failed together with its reasons.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)

	// Fetch downloads a single item to a deterministic location (within opts.Dir).
	// It returns the absolute local file path.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item represents one remote resource to download.
type Item struct {
	ID       string   // stable identifier (e.g. a NEVRA). Must be unique within a batch.
	URL      *url.URL // http(s) or file URL
	Checksum string   // optional hex-encoded SHA-256 checksum; if provided, will be verified
	Filename string   // optional preferred filename; if empty, a name will be derived
	// Optional marks items whose absence is not an error (e.g. a detached
	// signature that may not exist). Missing optional items are left out of
	// the result map.
	Optional bool
	// Auth, when set, is applied to the HTTP request of the item.
	Auth auth.Authenticator
}

// Options control the behavior of the download manager.
type Options struct {
	Dir         string // destination directory (cache). Must be absolute.
	Concurrency int    // number of parallel downloads; if <=0, a sane default is used
}

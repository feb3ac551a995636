package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/glorpus-work/gotx/internal/logger"
	pkgerrors "github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
)

// ManagerImpl is an HTTP and file URL download manager with checksum
// verification and de-duplication of identical URLs within a batch.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a new download manager with the given timeout and user agent.
func NewManager(timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = "gotx/1.0"
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// errNotFound marks a missing remote file, which optional items tolerate.
var errNotFound = fmt.Errorf("not found: %w", pkgerrors.ErrDownloadFailed)

// FetchAll downloads multiple items concurrently and returns a map of item IDs
// to downloaded file paths. Failures do not stop the batch; they are collected
// into one *errors.DownloadError.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(2, runtime.NumCPU()/2)
	}
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return nil, fmt.Errorf("download dir must be absolute: %w: %s", pkgerrors.ErrInvalidPath, opts.Dir)
	}
	if err := os.MkdirAll(opts.Dir, fsutil.DirModeSecure); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create download dir")
	}

	failures := pkgerrors.NewDownloadError()
	byURL := buildURLIndex(items, failures)
	paths, errs := m.runDownloadWorkers(ctx, items, byURL, opts)

	out := make(map[string]string, len(items))
	for i, it := range items {
		switch err := errs[i]; {
		case err == nil && paths[i] != "":
			out[it.ID] = paths[i]
		case err == nil:
		case it.Optional && err == errNotFound:
			logger.Debug("optional download missing", logger.Fields{"item": it.ID})
		default:
			failures.Add(it.ID, err.Error())
		}
	}
	if !failures.Empty() {
		return out, failures
	}
	return out, nil
}

// buildURLIndex groups item indexes by URL; items without a URL are recorded
// as failures right away.
func buildURLIndex(items []Item, failures *pkgerrors.DownloadError) map[string][]int {
	byURL := make(map[string][]int)
	for i, it := range items {
		if it.URL == nil {
			failures.Add(it.ID, "no download location")
			continue
		}
		key := it.URL.String()
		byURL[key] = append(byURL[key], i)
	}
	return byURL
}

// Fetch downloads a single item and returns the path to the downloaded file.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return "", fmt.Errorf("download dir must be absolute: %s: %w", opts.Dir, pkgerrors.ErrInvalidPath)
	}
	if err := os.MkdirAll(opts.Dir, fsutil.DirModeSecure); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}
	return m.fetchOne(ctx, item, opts)
}

func (m *ManagerImpl) runDownloadWorkers(ctx context.Context, items []Item, byURL map[string][]int, opts Options) ([]string, []error) {
	paths := make([]string, len(items))
	errs := make([]error, len(items))
	var mu sync.Mutex

	tasks := make(chan string)
	var wg sync.WaitGroup

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for urlStr := range tasks {
				idx := byURL[urlStr][0]
				path, err := m.fetchOne(ctx, items[idx], opts)
				mu.Lock()
				for _, i := range byURL[urlStr] {
					paths[i], errs[i] = path, err
				}
				mu.Unlock()
			}
		}()
	}

	for _, urlStr := range sortedKeys(byURL) {
		tasks <- urlStr
	}
	close(tasks)
	wg.Wait()
	return paths, errs
}

func (m *ManagerImpl) fetchOne(ctx context.Context, item Item, opts Options) (string, error) {
	if item.URL == nil {
		return "", fmt.Errorf("nil URL: %w", pkgerrors.ErrDownloadFailed)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if item.URL.Scheme == "file" || item.URL.Scheme == "" {
		return localFile(item)
	}

	filename := selectFilename(item)
	absPath := filepath.Join(opts.Dir, filename)
	if reuse, ok := tryReuseExisting(absPath, item.Checksum); ok {
		return reuse, nil
	}
	resp, err := m.doRequest(ctx, item)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	tmpPath, err := writeBodyToTemp(resp, absPath)
	if err != nil {
		return "", err
	}
	if item.Checksum != "" {
		ok, err := verifySHA256(tmpPath, item.Checksum)
		if err != nil {
			_ = os.Remove(tmpPath)
			return "", err
		}
		if !ok {
			_ = os.Remove(tmpPath)
			return "", fmt.Errorf("checksum mismatch for %s: %w", item.URL, pkgerrors.ErrFileHashMismatch)
		}
	}
	if err := finalizeFile(tmpPath, absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// localFile serves file URLs in place: nothing is copied into the cache.
func localFile(item Item) (string, error) {
	path := item.URL.Path
	st, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", errNotFound
	}
	if err != nil {
		return "", pkgerrors.Wrap(err, "stat local file")
	}
	if st.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, pkgerrors.ErrInvalidPath)
	}
	if item.Checksum != "" {
		ok, err := verifySHA256(path, item.Checksum)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("checksum mismatch for %s: %w", path, pkgerrors.ErrFileHashMismatch)
		}
	}
	return path, nil
}

func selectFilename(item Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	if base := filepath.Base(item.URL.Path); base != "." && base != "/" && base != "" {
		return base
	}
	if item.Checksum != "" {
		return item.Checksum
	}
	h := sha256.Sum256([]byte(item.URL.String()))
	return hex.EncodeToString(h[:])
}

func tryReuseExisting(absPath, checksum string) (string, bool) {
	// Without a checksum a cached file cannot be trusted to be current.
	if checksum == "" {
		return "", false
	}
	if st, err := os.Stat(absPath); err == nil && st.Size() > 0 {
		ok, err := verifySHA256(absPath, checksum)
		if err == nil && ok {
			return absPath, true
		}
	}
	return "", false
}

func (m *ManagerImpl) doRequest(ctx context.Context, item Item) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	if item.Auth != nil {
		if err := item.Auth.Apply(req); err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to apply %s authentication", item.Auth.Type())
		}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "download failed")
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrDownloadFailed)
	}
	return resp, nil
}

func writeBodyToTemp(resp *http.Response, absPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeSecure); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*.tmp")
	if err != nil {
		return "", pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not write file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return pkgerrors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return pkgerrors.Wrap(err, "could not set permissions")
	}
	return nil
}

// VerifySHA256 reports whether the file at path has the given hex digest.
func VerifySHA256(path string, wantHex string) (bool, error) {
	return verifySHA256(path, wantHex)
}

func verifySHA256(path string, wantHex string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, pkgerrors.Wrap(err, "hashing")
	}
	got := hex.EncodeToString(h.Sum(nil))
	return got == normalizeHex(wantHex), nil
}

func normalizeHex(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

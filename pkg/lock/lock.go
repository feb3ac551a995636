// Package lock serialises gotx processes with an advisory lock file. A Guard
// is acquired before planning and released on every exit path.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
)

// DefaultPoll is the back-off between two attempts while waiting.
const DefaultPoll = 2 * time.Second

// FileName is the lock file name inside the state directory.
const FileName = "gotx.pid"

// Options control Acquire.
type Options struct {
	// FailFast returns a *errors.LockedError instead of waiting.
	FailFast bool
	Poll     time.Duration
	// OnWait is called once per failed attempt with the holder's pid.
	OnWait func(pid int)
}

// Guard is a held lock.
type Guard struct {
	path string
	f    *os.File
	once sync.Once
	err  error
}

// Acquire takes the lock at path, waiting for the current holder unless
// opts.FailFast is set. Waiting stops with errors.ErrInterrupted when ctx is
// cancelled.
func Acquire(ctx context.Context, path string, opts Options) (*Guard, error) {
	if err := os.MkdirAll(filepath.Dir(path), fsutil.DirModeDefault); err != nil {
		return nil, errors.Wrap(err, "create lock directory")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, fsutil.FileModeDefault)
	if err != nil {
		return nil, errors.Wrap(err, "open lock file")
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}

	for {
		held, err := tryLock(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrap(err, "lock "+path)
		}
		if !held {
			break
		}

		pid := holder(f)
		if opts.FailFast {
			_ = f.Close()
			return nil, &errors.LockedError{PID: pid}
		}
		if opts.OnWait != nil {
			opts.OnWait(pid)
		}
		logger.Debug("waiting for lock", logger.Fields{"path": path, "pid": pid})

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, errors.ErrInterrupted
		case <-time.After(poll):
		}
	}

	if err := writePID(f); err != nil {
		_ = unlock(f)
		_ = f.Close()
		return nil, err
	}
	return &Guard{path: path, f: f}, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate lock file")
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return errors.Wrap(err, "write lock file")
	}
	return nil
}

func holder(f *os.File) int {
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0
	}
	return pid
}

// Path returns the lock file path.
func (g *Guard) Path() string { return g.path }

// Release drops the lock. Only the first call has an effect.
func (g *Guard) Release() error {
	if g == nil {
		return nil
	}
	g.once.Do(func() {
		_ = g.f.Truncate(0)
		if err := unlock(g.f); err != nil {
			g.err = fmt.Errorf("unlock %s: %w", g.path, err)
		}
		if err := g.f.Close(); err != nil && g.err == nil {
			g.err = err
		}
	})
	return g.err
}

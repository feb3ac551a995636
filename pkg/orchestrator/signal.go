package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/glorpus-work/gotx/internal/logger"
)

// signalGuard turns SIGINT and SIGTERM into a cancelled context for the
// lifetime of one Commit. Restore puts the previous signal handling back; it
// is safe to call more than once.
type signalGuard struct {
	signals chan os.Signal
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func installSignalGuard(parent context.Context) (context.Context, *signalGuard) {
	ctx, cancel := context.WithCancel(parent)
	g := &signalGuard{
		signals: make(chan os.Signal, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	signal.Notify(g.signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-g.signals:
			logger.Warn("Received signal, aborting transaction", logger.Fields{"signal": sig.String()})
			cancel()
		case <-g.done:
		}
	}()
	return ctx, g
}

func (g *signalGuard) Restore() {
	g.once.Do(func() {
		signal.Stop(g.signals)
		close(g.done)
		g.cancel()
	})
}

package cli

import (
	"context"
	"io"
	"strings"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/config"
	"github.com/glorpus-work/gotx/pkg/download"
	"github.com/glorpus-work/gotx/pkg/emitter"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/history"
	"github.com/glorpus-work/gotx/pkg/hooks"
	"github.com/glorpus-work/gotx/pkg/installer"
	"github.com/glorpus-work/gotx/pkg/lock"
	"github.com/glorpus-work/gotx/pkg/metrics"
	"github.com/glorpus-work/gotx/pkg/orchestrator"
	"github.com/glorpus-work/gotx/pkg/repository"
	"github.com/glorpus-work/gotx/pkg/signature"
	"github.com/glorpus-work/gotx/pkg/transaction"
	"github.com/spf13/cobra"
)

// session holds the process lock and everything a command needs to plan
// and commit transactions.
type session struct {
	cfg   *config.Config
	guard *lock.Guard
	inst  *installer.Installer
	sack  *repository.Sack
	store *history.SQLiteStore
	out   io.Writer
	// cmdline is recorded with every committed transaction.
	cmdline string
}

// openSession takes the lock, then loads the installed database, the
// history and the cached repository metadata.
func openSession(ctx context.Context, cfg *config.Config, out io.Writer) (*session, error) {
	guard, err := lock.Acquire(ctx, cfg.GetLockPath(), lock.Options{
		FailFast: cfg.Settings.LockFailFast,
		Poll:     cfg.Settings.LockPoll.Std(),
		OnWait: func(pid int) {
			logger.Info("Waiting for the process holding the lock", logger.Fields{"pid": pid})
		},
	})
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, guard: guard, out: out}

	s.inst, err = installer.New(installer.Options{
		Root:        cfg.Settings.RootDir,
		DBPath:      cfg.GetDatabasePath(),
		ToolVersion: Version,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.store, err = history.OpenSQLite(cfg.GetHistoryPath())
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := s.loadSack(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) loadSack() error {
	repos, err := s.cfg.RepositoryList()
	if err != nil {
		return err
	}
	sack := repository.NewSack(s.cfg.Settings.Arch, s.inst.Installed())
	if err := sack.LoadCached(repos, s.cfg.GetIndexDir()); err != nil {
		return err
	}
	s.sack = sack
	return nil
}

// Close releases the history database and the lock.
func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("Failed to close history", logger.Fields{"error": err.Error()})
		}
	}
	if err := s.guard.Release(); err != nil {
		logger.Warn("Failed to release lock", logger.Fields{"error": err.Error()})
	}
}

func (s *session) pipeline() (*orchestrator.Pipeline, error) {
	reporter, err := emitter.New(s.cfg.EmitterSettings(s.out, flag(NoColor)))
	if err != nil {
		return nil, err
	}
	scripts := hooks.NewHookManager()
	if err := hooks.LoadHooksFromDir(scripts, s.cfg.Settings.HooksDir); err != nil {
		return nil, err
	}

	p := &orchestrator.Pipeline{
		Installer:   s.inst,
		DL:          download.NewManager(s.cfg.Settings.HTTPTimeout.Std(), "gotx/"+Version),
		Source:      s.sack,
		Signatures:  signature.NewKeyring(s.cfg.Settings.KeyringDir, s.sack.GPGKeys()),
		History:     s.store,
		Scripts:     scripts,
		Reporters:   []orchestrator.Reporter{reporter},
		Metrics:     metrics.New(),
		Credentials: s.cfg.Credentials(),
		Hooks:       progressHooks(),
	}
	if prompter := newTerminalPrompter(s.out); prompter != nil {
		p.Prompter = prompter
	}
	return p, nil
}

func (s *session) options(replan orchestrator.ReplanFunc) orchestrator.Options {
	st := s.cfg.Settings
	return orchestrator.Options{
		AssumeYes:       st.AssumeYes,
		AssumeNo:        st.AssumeNo,
		GPGCheck:        s.cfg.GPGCheckEnabled(),
		CacheDir:        s.cfg.GetPackageCacheDir(),
		Concurrency:     st.DownloadConcurrency,
		KeepCache:       st.KeepCache,
		AlwaysUser:      alwaysUser(st),
		Cmdline:         s.cmdline,
		RootDir:         st.RootDir,
		Replan:          replan,
		MetricsTextfile: st.MetricsTextfile,
	}
}

// alwaysUser names the packages recorded as user-installed whatever pulled
// them in: the configured list plus the install-only packages.
func alwaysUser(st config.Settings) []string {
	out := append([]string(nil), st.HistoryRecordPackages...)
	return append(out, st.InstallOnlyPkgs...)
}

// commit plans with plan, prints the summary and runs the result through
// the pipeline. plan is called again when the pipeline needs a re-plan.
func (s *session) commit(ctx context.Context, plan planFunc) error {
	p, err := s.pipeline()
	if err != nil {
		return err
	}
	tx, ts, err := plan()
	if err != nil {
		return err
	}
	printSummary(s.out, tx, ts, flag(NoColor))

	replan := func() (*transaction.Transaction, error) {
		fresh, _, err := plan()
		return fresh, err
	}
	res, err := p.Commit(ctx, tx, s.options(replan))
	switch res.Code {
	case orchestrator.CodeNothingToDo:
		_, _ = io.WriteString(s.out, "Nothing to do.\n")
		return nil
	case orchestrator.CodeSuccess:
		_, _ = io.WriteString(s.out, "Complete!\n")
	}
	if errors.Is(err, errors.ErrOperationAborted) {
		_, _ = io.WriteString(s.out, "Operation aborted.\n")
	}
	return err
}

// withSession loads the configuration, opens a session for the duration of
// fn and releases it afterwards.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context(), cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()
	s.cmdline = commandLine(cmd)
	return fn(cmd.Context(), s)
}

// commandLine renders the invoked subcommand and its arguments without the
// program name.
func commandLine(cmd *cobra.Command) string {
	words := strings.Fields(cmd.CommandPath())[1:]
	return strings.Join(append(words, cmd.Flags().Args()...), " ")
}

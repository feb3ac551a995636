package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/auth"
	"github.com/glorpus-work/gotx/pkg/download"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/history"
	"github.com/glorpus-work/gotx/pkg/hooks"
	"github.com/glorpus-work/gotx/pkg/metrics"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/signature"
	"github.com/glorpus-work/gotx/pkg/transaction"
)

// Pipeline ties the download manager, the signature keyring, the installer
// and the history log together to commit one frozen transaction.
type Pipeline struct {
	Installer  transaction.Installer
	DL         Downloader
	Source     PackageSource
	Signatures SignatureVerifier
	// Prompter may be nil when running non-interactively.
	Prompter  Prompter
	History   history.Store
	Scripts   HookRunner
	Reporters []Reporter
	Metrics   *metrics.Collector
	// Credentials authenticate downloads per repository.
	Credentials auth.Credentials
	Hooks       Hooks // Hooks for progress and event notifications
}

func emit(h Hooks, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// commit is the state of one Commit call.
type commit struct {
	p    *Pipeline
	opts Options
	res  *Result

	packages   map[model.PkgRef]*model.Package
	paths      map[model.PkgRef]string
	downloaded []string
	phaseStart time.Time
}

func (c *commit) reach(phase Phase, msg string) {
	now := time.Now()
	c.p.Metrics.ObservePhase(string(phase), now.Sub(c.phaseStart))
	c.phaseStart = now
	c.res.Phase = phase
	emit(c.p.Hooks, Event{Phase: phase, ID: c.res.ID, Msg: msg})
}

func (c *commit) fail(code int, err error) (*Result, error) {
	c.res.Code = code
	emit(c.p.Hooks, Event{Phase: PhaseError, ID: c.res.ID, Msg: err.Error()})
	return c.res, err
}

func (c *commit) interrupted(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.ErrInterrupted
	}
	return nil
}

// Commit runs tx through the pipeline: size report, confirmation, download,
// signature check, dependency check, test run, optional reinstall re-plan,
// execution and history recording. A signal received before execution starts
// aborts without any persisted change.
//
// The returned Result is never nil. Its Code is CodeNothingToDo for an empty
// transaction, CodePending when confirmation is needed but no one can give
// it, CodeFatal on any error and CodeSuccess otherwise.
func (p *Pipeline) Commit(ctx context.Context, tx *transaction.Transaction, opts Options) (*Result, error) {
	c := &commit{
		p:    p,
		opts: opts,
		res: &Result{
			ID:          uuid.NewString(),
			Transaction: tx,
			Begin:       time.Now(),
		},
		packages:   make(map[model.PkgRef]*model.Package),
		paths:      make(map[model.PkgRef]string),
		phaseStart: time.Now(),
	}
	if p.Installer == nil {
		return c.fail(CodeFatal, errors.ErrInstallerNotSet)
	}

	ctx, guard := installSignalGuard(ctx)
	defer guard.Restore()
	defer c.finish(ctx)

	if tx == nil || tx.Empty() {
		c.res.Code = CodeNothingToDo
		c.reach(PhasePlanned, errors.ErrNothingToDo.Error())
		return c.res, nil
	}
	if err := tx.RPMLimitations(); err != nil {
		return c.fail(CodeFatal, err)
	}
	c.reach(PhasePlanned, fmt.Sprintf("%d item(s)", tx.Len()))

	items, err := c.planDownloads(tx)
	if err != nil {
		return c.fail(CodeFatal, err)
	}
	c.reach(PhaseSizeReported, c.sizeSummary(items))

	if err := c.interrupted(ctx); err != nil {
		return c.fail(CodeFatal, err)
	}
	if code, err := c.confirm(); err != nil {
		return c.fail(code, err)
	}
	c.reach(PhaseConfirmed, "")

	if err := c.download(ctx, items); err != nil {
		return c.fail(CodeFatal, err)
	}
	c.reach(PhaseDownloaded, fmt.Sprintf("%d file(s)", len(c.downloaded)))

	if err := c.interrupted(ctx); err != nil {
		return c.fail(CodeFatal, err)
	}
	if err := c.checkSignatures(tx); err != nil {
		return c.fail(CodeFatal, err)
	}
	c.reach(PhaseSignaturesChecked, "")

	if err := c.interrupted(ctx); err != nil {
		return c.fail(CodeFatal, err)
	}
	if err := c.prepare(tx); err != nil {
		return c.fail(CodeFatal, err)
	}
	c.reach(PhaseRpmCheckPassed, "")

	problems, err := p.Installer.Test(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return c.fail(CodeFatal, errors.ErrInterrupted)
		}
		return c.fail(CodeFatal, errors.Wrap(err, "test transaction"))
	}
	if len(problems) > 0 {
		return c.fail(CodeFatal, &errors.TestTransactionError{Problems: transaction.ProblemStrings(problems)})
	}
	c.reach(PhaseTestPassed, "")

	if tx.HasReinstall() {
		if tx, err = c.replan(tx); err != nil {
			return c.fail(CodeFatal, err)
		}
		c.res.Transaction = tx
		c.reach(PhaseReordered, "")
	}

	if err := c.interrupted(ctx); err != nil {
		return c.fail(CodeFatal, err)
	}
	if err := c.runScript(hooks.PreTransaction, tx, 0); err != nil {
		return c.fail(CodeFatal, err)
	}
	if err := c.interrupted(ctx); err != nil {
		return c.fail(CodeFatal, err)
	}

	if err := c.execute(ctx, tx); err != nil {
		return c.fail(CodeFatal, err)
	}

	var failure error
	if len(c.res.Failed) > 0 {
		failure = &FailedItemsError{Failed: c.res.Failed, Total: tx.Len()}
		c.res.Code = CodeFatal
	} else {
		c.res.Code = CodeSuccess
		c.cleanCache()
	}
	c.res.End = time.Now()

	for _, r := range p.Reporters {
		if err := r.Report(ctx, c.res); err != nil {
			logger.Warn("Failed to report transaction", logger.Fields{"id": c.res.ID, "error": err.Error()})
		}
	}
	c.reach(PhaseReported, "")
	return c.res, failure
}

// planDownloads looks up the repository metadata of every package to
// install and returns the files that have to be fetched.
func (c *commit) planDownloads(tx *transaction.Transaction) ([]download.Item, error) {
	if c.p.Source == nil {
		return nil, fmt.Errorf("%w: package source is not configured", errors.ErrInstallerNotSet)
	}
	derr := errors.NewDownloadError()
	var items []download.Item
	for _, ref := range tx.InstallSet() {
		pkg, ok := c.p.Source.Package(ref)
		if !ok {
			derr.Add(ref.String(), "no repository metadata")
			continue
		}
		c.packages[ref] = pkg
		if pkg.LocalPath != "" {
			c.paths[ref] = pkg.LocalPath
			continue
		}
		u, err := url.Parse(pkg.Location)
		if err != nil || pkg.Location == "" {
			derr.Add(ref.String(), "invalid download location")
			continue
		}
		c.res.DownloadSize += pkg.Size
		creds := c.p.Credentials.For(pkg.Repo)
		items = append(items, download.Item{ID: ref.String(), URL: u, Checksum: pkg.Checksum, Auth: creds})
		if c.opts.GPGCheck {
			sigURL := *u
			sigURL.Path += signature.SignatureSuffix
			items = append(items, download.Item{
				ID:       ref.String() + signature.SignatureSuffix,
				URL:      &sigURL,
				Filename: path.Base(u.Path) + signature.SignatureSuffix,
				Optional: true,
				Auth:     creds,
			})
		}
	}
	if !derr.Empty() {
		return nil, derr
	}

	installs := make(map[model.PkgRef]struct{})
	for _, ref := range tx.InstallSet() {
		installs[ref] = struct{}{}
	}
	for _, ref := range tx.RemoveSet() {
		if _, ok := installs[ref]; !ok {
			c.res.RemoveOnly++
		}
	}
	return items, nil
}

func (c *commit) sizeSummary(items []download.Item) string {
	n := 0
	for _, it := range items {
		if !it.Optional {
			n++
		}
	}
	msg := fmt.Sprintf("%d package(s) to download (%s), %d to remove",
		n, humanize.IBytes(uint64(c.res.DownloadSize)), c.res.RemoveOnly)
	logger.Info("Transaction summary", logger.Fields{
		"id":          c.res.ID,
		"download":    n,
		"size":        c.res.DownloadSize,
		"remove_only": c.res.RemoveOnly,
	})
	return msg
}

func (c *commit) confirm() (int, error) {
	switch {
	case c.opts.AssumeNo:
		return CodeFatal, errors.ErrOperationAborted
	case c.opts.AssumeYes:
		return CodeSuccess, nil
	case c.p.Prompter == nil:
		return CodePending, errors.ErrConfirmationRequired
	}
	ok, err := c.p.Prompter.Confirm("Is this ok")
	if err != nil {
		return CodeFatal, errors.Wrap(err, "read confirmation")
	}
	if !ok {
		return CodeFatal, errors.ErrOperationAborted
	}
	return CodeSuccess, nil
}

func (c *commit) download(ctx context.Context, items []download.Item) error {
	if len(items) == 0 {
		return nil
	}
	if c.p.DL == nil {
		return fmt.Errorf("%w: download manager is not configured", errors.ErrDownloadFailed)
	}
	fetched, err := c.p.DL.FetchAll(ctx, items, download.Options{Dir: c.opts.CacheDir, Concurrency: c.opts.Concurrency})
	if err != nil {
		if ctx.Err() != nil {
			return errors.ErrInterrupted
		}
		return err
	}
	for ref, pkg := range c.packages {
		if _, local := c.paths[ref]; local {
			continue
		}
		p, ok := fetched[ref.String()]
		if !ok {
			derr := errors.NewDownloadError()
			derr.Add(ref.String(), "missing from download result")
			return derr
		}
		c.paths[ref] = p
		c.downloaded = append(c.downloaded, p)
		if sig, ok := fetched[ref.String()+signature.SignatureSuffix]; ok {
			c.downloaded = append(c.downloaded, sig)
		}
		c.p.Metrics.AddDownloaded(pkg.Size)
	}
	return nil
}

// checkSignatures verifies every package to install. An untrusted key may be
// imported, but only with the user's consent or an explicit assume-yes.
func (c *commit) checkSignatures(tx *transaction.Transaction) error {
	if !c.opts.GPGCheck {
		return nil
	}
	if c.p.Signatures == nil {
		return fmt.Errorf("%w: no keyring configured", errors.ErrSignature)
	}
	for _, ref := range tx.InstallSet() {
		pkg := c.packages[ref]
		file := c.paths[ref]
		res := c.p.Signatures.Verify(pkg, file)
		switch res.Status {
		case signature.StatusOK:
			continue
		case signature.StatusFatal:
			return &errors.SignatureError{Package: ref.String(), Kind: errors.SignatureFatal, Message: res.Message}
		}

		if err := c.importKey(pkg, res); err != nil {
			return err
		}
		if again := c.p.Signatures.Verify(pkg, file); again.Status != signature.StatusOK {
			msg := again.Message
			if msg == "" {
				msg = "signature still not trusted after key import"
			}
			return &errors.SignatureError{Package: ref.String(), Kind: errors.SignatureFatal, Message: msg}
		}
	}
	return nil
}

func (c *commit) importKey(pkg *model.Package, res signature.Result) error {
	untrusted := func(msg string) error {
		return &errors.SignatureError{Package: pkg.Ref().String(), Kind: errors.SignatureKeyUntrusted, Message: msg}
	}
	switch {
	case c.opts.AssumeYes && !c.opts.AssumeNo:
	case c.opts.AssumeNo || c.p.Prompter == nil:
		return untrusted(fmt.Sprintf("key 0x%s was not imported", res.KeyID))
	default:
		ok, err := c.p.Prompter.ConfirmKeyImport(res, pkg)
		if err != nil {
			return errors.Wrap(err, "read key import confirmation")
		}
		if !ok {
			return untrusted(fmt.Sprintf("import of key 0x%s declined", res.KeyID))
		}
	}
	logger.Info("Importing key", logger.Fields{"key": res.KeyID, "fingerprint": res.Fingerprint, "from": res.KeyPath})
	if err := c.p.Signatures.Import(res); err != nil {
		return &errors.SignatureError{Package: pkg.Ref().String(), Kind: errors.SignatureFatal, Message: err.Error()}
	}
	return nil
}

// prepare queues tx in the installer and runs the cheap check pass.
func (c *commit) prepare(tx *transaction.Transaction) error {
	inst := c.p.Installer
	if err := tx.PopulateInstaller(inst, c.lookup); err != nil {
		return err
	}
	if err := check(inst); err != nil {
		return err
	}
	return errors.Wrap(inst.Order(), "order transaction")
}

func check(inst transaction.Installer) error {
	problems := inst.Check()
	if len(problems) == 0 {
		return nil
	}
	var rpmlib, other []transaction.Problem
	for _, p := range problems {
		if p.Kind == transaction.ProblemRpmlib {
			rpmlib = append(rpmlib, p)
		} else {
			other = append(other, p)
		}
	}
	if len(rpmlib) > 0 {
		return &errors.RpmlibMismatchError{Problems: transaction.ProblemStrings(rpmlib)}
	}
	return &errors.DependencyCheckError{Problems: transaction.ProblemStrings(other)}
}

func (c *commit) lookup(ref model.PkgRef) (string, bool) {
	p, ok := c.paths[ref]
	return p, ok
}

// replan rebuilds the transaction after the test run and queues it again.
// The installer needs a second check and order pass for reinstalls.
func (c *commit) replan(tx *transaction.Transaction) (*transaction.Transaction, error) {
	c.p.Installer.Clean()
	if c.opts.Replan != nil {
		fresh, err := c.opts.Replan()
		if err != nil {
			return nil, errors.Wrap(err, "rebuild transaction")
		}
		if fresh != nil {
			tx = fresh
		}
	}
	logger.Debug("Re-queueing transaction for reinstall", logger.Fields{"id": c.res.ID, "items": tx.Len()})
	if err := c.prepare(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *commit) runScript(t hooks.HookType, tx *transaction.Transaction, rc int) error {
	if c.p.Scripts == nil {
		return nil
	}
	hc := hooks.HookContext{
		TransactionID: c.res.ID,
		RootDir:       c.opts.RootDir,
		Entries:       hookEntries(tx.Items()),
		ReturnCode:    rc,
	}
	return c.p.Scripts.Execute(t, hc)
}

func hookEntries(items []*transaction.Item) []hooks.Entry {
	out := make([]hooks.Entry, 0, len(items))
	for _, it := range items {
		e := hooks.Entry{Op: it.Op.String()}
		if it.Installed != nil {
			e.Installed = it.Installed.String()
		}
		if it.Erased != nil {
			e.Erased = it.Erased.String()
		}
		for _, o := range it.Obsoleted {
			e.Obsoleted = append(e.Obsoleted, o.String())
		}
		out = append(out, e)
	}
	return out
}

// execute applies tx and records the applied subset. Once the installer runs
// the context is no longer consulted.
func (c *commit) execute(ctx context.Context, tx *transaction.Transaction) error {
	inst := c.p.Installer
	before, err := inst.DBVersion()
	if err != nil {
		return errors.Wrap(err, "read package database version")
	}

	runRes, err := inst.Run(context.WithoutCancel(ctx))
	if err != nil {
		return errors.Wrap(err, "run transaction")
	}
	c.res.Failed = runRes.Errors
	c.res.Applied = runRes.Applied(tx)
	for _, f := range runRes.Errors {
		logger.Error("Transaction item failed", logger.Fields{"id": c.res.ID, "package": f.Ref.String(), "error": f.Message})
	}
	c.reach(PhaseCommitted, fmt.Sprintf("%d of %d item(s) applied", len(c.res.Applied), tx.Len()))

	if err := c.record(tx, before, runRes.ReturnCode); err != nil {
		return err
	}
	if err := c.runScript(hooks.PostTransaction, tx, runRes.ReturnCode); err != nil {
		logger.Warn("Post-transaction script failed", logger.Fields{"id": c.res.ID, "error": err.Error()})
	}
	return nil
}

func (c *commit) record(tx *transaction.Transaction, before string, rc int) error {
	if c.p.History == nil || len(c.res.Applied) == 0 {
		return nil
	}
	after, err := c.p.Installer.DBVersion()
	if err != nil {
		return errors.Wrap(err, "read package database version")
	}
	// Reasons first: they are looked up against the state before this unit.
	if err := history.RecordReasons(c.p.History, c.res.Applied, c.opts.AlwaysUser); err != nil {
		return errors.Wrap(err, "record package reasons")
	}
	unit := &history.Unit{
		Begin:           c.res.Begin,
		End:             time.Now(),
		DBVersionBefore: before,
		DBVersionAfter:  after,
		Cmdline:         c.opts.Cmdline,
		ReturnCode:      rc,
		Ops:             history.OperationsFromItems(c.res.Applied),
	}
	id, err := c.p.History.Append(unit)
	if err != nil {
		return errors.Wrap(err, "append history")
	}
	c.res.UnitID = id
	logger.Info("Transaction recorded", logger.Fields{"id": c.res.ID, "unit": id, "operations": len(unit.Ops), "items": tx.Len()})
	return nil
}

// cleanCache removes downloaded files after a successful commit.
func (c *commit) cleanCache() {
	if c.opts.KeepCache {
		return
	}
	for _, p := range c.downloaded {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Debug("cannot remove cached package", logger.Fields{"path": p, "error": err.Error()})
		}
	}
}

func (c *commit) finish(ctx context.Context) {
	if c.res.End.IsZero() {
		c.res.End = time.Now()
	}
	applied := make(map[string]int)
	for _, it := range c.res.Applied {
		applied[it.Op.String()]++
	}
	c.p.Metrics.Finished(outcome(ctx, c.res), applied, c.res.End)
	if err := c.p.Metrics.WriteTextfile(c.opts.MetricsTextfile); err != nil {
		logger.Warn("Failed to write metrics", logger.Fields{"error": err.Error()})
	}
}

func outcome(ctx context.Context, res *Result) string {
	switch {
	case res.Code == CodeNothingToDo:
		return "nothing-to-do"
	case res.Code == CodeSuccess:
		return "success"
	case res.Code == CodePending:
		return "pending"
	case ctx.Err() != nil && len(res.Applied) == 0:
		return "interrupted"
	case res.Phase == PhaseSizeReported:
		return "aborted"
	}
	return "failure"
}

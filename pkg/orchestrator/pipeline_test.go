package orchestrator_test

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/gotx/pkg/auth"
	"github.com/glorpus-work/gotx/pkg/download"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/history"
	"github.com/glorpus-work/gotx/pkg/hooks"
	"github.com/glorpus-work/gotx/pkg/metrics"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/orchestrator"
	mocks "github.com/glorpus-work/gotx/pkg/orchestrator/mocks"
	"github.com/glorpus-work/gotx/pkg/signature"
	"github.com/glorpus-work/gotx/pkg/transaction"
	txmocks "github.com/glorpus-work/gotx/pkg/transaction/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func mustRef(t *testing.T, s string) model.PkgRef {
	t.Helper()
	r, err := model.ParsePkgRef(s)
	require.NoError(t, err)
	return r
}

// source is an in-memory PackageSource.
type source map[model.PkgRef]*model.Package

func (s source) Package(ref model.PkgRef) (*model.Package, bool) {
	p, ok := s[ref]
	return p, ok
}

type env struct {
	inst     *txmocks.MockInstaller
	dl       *mocks.MockDownloader
	prompter *mocks.MockPrompter
	sigs     *mocks.MockSignatureVerifier
	store    *history.SQLiteStore
	src      source
	phases   []orchestrator.Phase
	pipeline *orchestrator.Pipeline
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctrl := gomock.NewController(t)
	store, err := history.OpenSQLite(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	e := &env{
		inst:     txmocks.NewMockInstaller(ctrl),
		dl:       mocks.NewMockDownloader(ctrl),
		prompter: mocks.NewMockPrompter(ctrl),
		sigs:     mocks.NewMockSignatureVerifier(ctrl),
		store:    store,
		src:      source{},
	}
	e.pipeline = &orchestrator.Pipeline{
		Installer:  e.inst,
		DL:         e.dl,
		Source:     e.src,
		Signatures: e.sigs,
		Prompter:   e.prompter,
		History:    store,
		Hooks: orchestrator.Hooks{OnEvent: func(ev orchestrator.Event) {
			e.phases = append(e.phases, ev.Phase)
		}},
	}
	return e
}

// local registers a package that is already on disk.
func (e *env) local(ref model.PkgRef) string {
	p := "/srv/pkgs/" + ref.String() + ".gotx"
	e.src[ref] = &model.Package{PkgRef: ref, Repo: "main", LocalPath: p, Size: 1024}
	return p
}

// remote registers a package served by a repository.
func (e *env) remote(ref model.PkgRef) string {
	loc := "https://repo.example/pkgs/" + ref.String() + ".gotx"
	e.src[ref] = &model.Package{PkgRef: ref, Repo: "main", Location: loc, Checksum: "abc", Size: 4096}
	return loc
}

// expectApply expects one full populate/check/test/run cycle.
func (e *env) expectApply(runRes transaction.Result) {
	e.inst.EXPECT().AddInstall(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	e.inst.EXPECT().AddErase(gomock.Any()).Return(nil).AnyTimes()
	e.inst.EXPECT().AddReinstall(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	gomock.InOrder(
		e.inst.EXPECT().Check().Return(nil),
		e.inst.EXPECT().Order().Return(nil),
		e.inst.EXPECT().Test(gomock.Any()).Return(nil, nil),
		e.inst.EXPECT().DBVersion().Return("before", nil),
		e.inst.EXPECT().Run(gomock.Any()).Return(runRes, nil),
		e.inst.EXPECT().DBVersion().Return("after", nil),
	)
}

func upgradeTx(t *testing.T, newRef, oldRef model.PkgRef) *transaction.Transaction {
	t.Helper()
	tx := transaction.New()
	_, err := tx.AddUpgrade(newRef, oldRef, nil)
	require.NoError(t, err)
	return tx
}

func TestCommitNothingToDo(t *testing.T) {
	e := newEnv(t)

	res, err := e.pipeline.Commit(context.Background(), transaction.New(), orchestrator.Options{})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.CodeNothingToDo, res.Code)
	assert.Equal(t, []orchestrator.Phase{orchestrator.PhasePlanned}, e.phases)

	last, err := e.store.Last()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestCommitWithoutInstaller(t *testing.T) {
	p := &orchestrator.Pipeline{}
	res, err := p.Commit(context.Background(), transaction.New(), orchestrator.Options{})
	assert.ErrorIs(t, err, errors.ErrInstallerNotSet)
	assert.Equal(t, orchestrator.CodeFatal, res.Code)
}

func TestCommitRejectsSourcePackages(t *testing.T) {
	e := newEnv(t)
	tx := transaction.New()
	_, err := tx.AddInstall(mustRef(t, "pepper-20-1.src"), nil, model.ReasonUser)
	require.NoError(t, err)

	res, err := e.pipeline.Commit(context.Background(), tx, orchestrator.Options{AssumeYes: true})
	assert.ErrorIs(t, err, errors.ErrUnsupportedOperation)
	assert.Equal(t, orchestrator.CodeFatal, res.Code)
}

func TestCommitConfirmationGate(t *testing.T) {
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")

	tests := []struct {
		name     string
		opts     orchestrator.Options
		prompter bool
		answer   bool
		wantCode int
		wantErr  error
	}{
		{name: "assume no wins over assume yes", opts: orchestrator.Options{AssumeYes: true, AssumeNo: true}, prompter: true, wantCode: orchestrator.CodeFatal, wantErr: errors.ErrOperationAborted},
		{name: "no prompter means pending", wantCode: orchestrator.CodePending, wantErr: errors.ErrConfirmationRequired},
		{name: "declined", prompter: true, answer: false, wantCode: orchestrator.CodeFatal, wantErr: errors.ErrOperationAborted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.local(newRef)
			if !tt.prompter {
				e.pipeline.Prompter = nil
			} else if !tt.opts.AssumeNo {
				e.prompter.EXPECT().Confirm(gomock.Any()).Return(tt.answer, nil)
			}

			res, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), tt.opts)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.NotContains(t, e.phases, orchestrator.PhaseConfirmed)
			assert.Equal(t, orchestrator.PhaseError, e.phases[len(e.phases)-1])
		})
	}
}

func TestCommitUpgradeRecordsHistory(t *testing.T) {
	e := newEnv(t)
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	path := e.local(newRef)
	require.NoError(t, e.store.SetReason(oldRef, model.ReasonUser))

	e.prompter.EXPECT().Confirm(gomock.Any()).Return(true, nil)
	e.inst.EXPECT().AddInstall(newRef, path, true).Return(nil)
	e.expectApply(transaction.Result{})

	res, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{Cmdline: "upgrade pepper"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.CodeSuccess, res.Code)
	assert.True(t, res.Succeeded())
	assert.NotEmpty(t, res.ID)
	assert.Len(t, res.Applied, 1)
	assert.Equal(t, []orchestrator.Phase{
		orchestrator.PhasePlanned,
		orchestrator.PhaseSizeReported,
		orchestrator.PhaseConfirmed,
		orchestrator.PhaseDownloaded,
		orchestrator.PhaseSignaturesChecked,
		orchestrator.PhaseRpmCheckPassed,
		orchestrator.PhaseTestPassed,
		orchestrator.PhaseCommitted,
		orchestrator.PhaseReported,
	}, e.phases)

	unit, err := e.store.Unit(res.UnitID)
	require.NoError(t, err)
	assert.Equal(t, "before", unit.DBVersionBefore)
	assert.Equal(t, "after", unit.DBVersionAfter)
	assert.Equal(t, "upgrade pepper", unit.Cmdline)
	require.Len(t, unit.Ops, 1)
	assert.Equal(t, history.KindUpdate, unit.Ops[0].Kind)
	assert.Equal(t, newRef, unit.Ops[0].New)
	assert.Equal(t, oldRef, *unit.Ops[0].Old)

	assert.Equal(t, model.ReasonUser, e.store.ReasonOf(newRef))
	assert.Equal(t, model.ReasonUnknown, e.store.ReasonOf(oldRef))
}

func TestCommitDownloads(t *testing.T) {
	e := newEnv(t)
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	loc := e.remote(newRef)
	cache := t.TempDir()
	token := auth.BearerAuth{Token: "t0k"}
	e.pipeline.Credentials = auth.Credentials{"main": token}

	e.dl.EXPECT().FetchAll(gomock.Any(), gomock.Any(), download.Options{Dir: cache, Concurrency: 3}).
		DoAndReturn(func(_ context.Context, items []download.Item, _ download.Options) (map[string]string, error) {
			require.Len(t, items, 1)
			assert.Equal(t, newRef.String(), items[0].ID)
			assert.Equal(t, loc, items[0].URL.String())
			assert.Equal(t, "abc", items[0].Checksum)
			assert.Equal(t, token, items[0].Auth)
			return map[string]string{newRef.String(): filepath.Join(cache, "pepper.gotx")}, nil
		})
	e.inst.EXPECT().AddInstall(newRef, filepath.Join(cache, "pepper.gotx"), true).Return(nil)
	e.expectApply(transaction.Result{})

	res, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef),
		orchestrator.Options{AssumeYes: true, CacheDir: cache, Concurrency: 3, KeepCache: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4096), res.DownloadSize)
}

func TestSyncAll(t *testing.T) {
	e := newEnv(t)
	e.pipeline.Credentials = auth.Credentials{"private": auth.BasicAuth{Username: "u"}}
	dir := t.TempDir()
	mainURL, _ := url.Parse("https://repo.example/repodata/index.json")
	privateURL, _ := url.Parse("https://private.example/repodata/index.json")

	e.dl.EXPECT().FetchAll(gomock.Any(), gomock.Any(), download.Options{Dir: dir, Concurrency: 2}).
		DoAndReturn(func(_ context.Context, items []download.Item, _ download.Options) (map[string]string, error) {
			require.Len(t, items, 2)
			assert.Equal(t, "main.json", items[0].Filename)
			assert.Nil(t, items[0].Auth)
			assert.Equal(t, auth.BasicAuthType, items[1].Auth.Type())
			return map[string]string{"main": filepath.Join(dir, "main.json"), "private": filepath.Join(dir, "private.json")}, nil
		})

	paths, err := e.pipeline.SyncAll(context.Background(), []orchestrator.RepoIndex{
		{Name: "main", URL: mainURL},
		{Name: "private", URL: privateURL},
		{Name: "broken"},
	}, dir, 2)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assert.Equal(t, []orchestrator.Phase{orchestrator.PhaseSyncing}, e.phases)

	paths, err = e.pipeline.SyncAll(context.Background(), nil, dir, 2)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestCommitDownloadError(t *testing.T) {
	e := newEnv(t)
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	e.remote(newRef)

	derr := errors.NewDownloadError()
	derr.Add(newRef.String(), "404 not found")
	e.dl.EXPECT().FetchAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(map[string]string{}, derr)

	res, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true})
	assert.ErrorIs(t, err, errors.ErrDownloadFailed)
	assert.Equal(t, []string{"pepper-20-1.x86_64: 404 not found"}, errors.Details(err))
	assert.Equal(t, orchestrator.CodeFatal, res.Code)
	assert.NotContains(t, e.phases, orchestrator.PhaseDownloaded)
}

func TestCommitMissingMetadata(t *testing.T) {
	e := newEnv(t)
	tx := transaction.New()
	_, err := tx.AddInstall(mustRef(t, "ghost-1-1.noarch"), nil, model.ReasonUser)
	require.NoError(t, err)

	_, err = e.pipeline.Commit(context.Background(), tx, orchestrator.Options{AssumeYes: true})
	assert.ErrorIs(t, err, errors.ErrDownloadFailed)
	assert.Equal(t, []string{"ghost-1-1.noarch: no repository metadata"}, errors.Details(err))
}

func TestCommitSignatures(t *testing.T) {
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	untrusted := signature.Result{Status: signature.StatusUntrusted, KeyID: "ABCD1234", KeyPath: "/etc/keys/main.asc"}

	t.Run("fatal aborts", func(t *testing.T) {
		e := newEnv(t)
		path := e.local(newRef)
		e.sigs.EXPECT().Verify(e.src[newRef], path).Return(signature.Result{Status: signature.StatusFatal, Message: "bad signature"})

		_, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true, GPGCheck: true})
		var serr *errors.SignatureError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, errors.SignatureFatal, serr.Kind)
		assert.Equal(t, "bad signature", serr.Message)
	})

	t.Run("untrusted key imported with assume yes", func(t *testing.T) {
		e := newEnv(t)
		path := e.local(newRef)
		gomock.InOrder(
			e.sigs.EXPECT().Verify(e.src[newRef], path).Return(untrusted),
			e.sigs.EXPECT().Import(untrusted).Return(nil),
			e.sigs.EXPECT().Verify(e.src[newRef], path).Return(signature.Result{Status: signature.StatusOK}),
		)
		e.expectApply(transaction.Result{})

		res, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true, GPGCheck: true})
		require.NoError(t, err)
		assert.Equal(t, orchestrator.CodeSuccess, res.Code)
	})

	t.Run("untrusted key declined", func(t *testing.T) {
		e := newEnv(t)
		path := e.local(newRef)
		e.prompter.EXPECT().Confirm(gomock.Any()).Return(true, nil)
		e.sigs.EXPECT().Verify(e.src[newRef], path).Return(untrusted)
		e.prompter.EXPECT().ConfirmKeyImport(untrusted, e.src[newRef]).Return(false, nil)

		_, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{GPGCheck: true})
		var serr *errors.SignatureError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, errors.SignatureKeyUntrusted, serr.Kind)
	})

	t.Run("still untrusted after import", func(t *testing.T) {
		e := newEnv(t)
		path := e.local(newRef)
		e.sigs.EXPECT().Verify(e.src[newRef], path).Return(untrusted).Times(2)
		e.sigs.EXPECT().Import(untrusted).Return(nil)

		_, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true, GPGCheck: true})
		var serr *errors.SignatureError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, errors.SignatureFatal, serr.Kind)
	})
}

func TestCommitRequestsDetachedSignatures(t *testing.T) {
	e := newEnv(t)
	ref := mustRef(t, "lotus-4-1.x86_64")
	e.remote(ref)
	tx := transaction.New()
	_, err := tx.AddInstall(ref, nil, model.ReasonUser)
	require.NoError(t, err)

	e.dl.EXPECT().FetchAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, items []download.Item, _ download.Options) (map[string]string, error) {
			require.Len(t, items, 2)
			sig := items[1]
			assert.True(t, sig.Optional)
			assert.Equal(t, ref.String()+".asc", sig.ID)
			assert.Equal(t, ref.String()+".gotx.asc", sig.Filename)
			want, _ := url.Parse("https://repo.example/pkgs/" + ref.String() + ".gotx.asc")
			assert.Equal(t, want, sig.URL)
			return nil, errors.NewDownloadError()
		})

	_, err = e.pipeline.Commit(context.Background(), tx, orchestrator.Options{AssumeYes: true, GPGCheck: true})
	assert.ErrorIs(t, err, errors.ErrDownloadFailed)
}

func TestCommitCheckProblems(t *testing.T) {
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")

	tests := []struct {
		name     string
		problems []transaction.Problem
		want     error
		details  []string
	}{
		{
			name: "tool too old",
			problems: []transaction.Problem{
				{Kind: transaction.ProblemRpmlib, Package: "pepper-20-1.x86_64", Message: "requires gotx >= 9.0"},
				{Kind: transaction.ProblemDependency, Package: "pepper-20-1.x86_64", Message: "requires salt"},
			},
			want:    errors.ErrRpmlibMismatch,
			details: []string{"pepper-20-1.x86_64: requires gotx >= 9.0"},
		},
		{
			name:     "dependency problem",
			problems: []transaction.Problem{{Kind: transaction.ProblemDependency, Package: "pepper-20-1.x86_64", Message: "requires salt"}},
			want:     errors.ErrDependencyCheck,
			details:  []string{"pepper-20-1.x86_64: requires salt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.local(newRef)
			e.inst.EXPECT().AddInstall(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			e.inst.EXPECT().Check().Return(tt.problems)

			res, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.details, errors.Details(err))
			assert.Equal(t, orchestrator.CodeFatal, res.Code)
			assert.Equal(t, orchestrator.PhaseSignaturesChecked, res.Phase)
		})
	}
}

func TestCommitTestTransactionFails(t *testing.T) {
	e := newEnv(t)
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	e.local(newRef)

	e.inst.EXPECT().AddInstall(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	e.inst.EXPECT().Check().Return(nil)
	e.inst.EXPECT().Order().Return(nil)
	e.inst.EXPECT().Test(gomock.Any()).Return([]transaction.Problem{
		{Kind: transaction.ProblemConflict, Package: "pepper-20-1.x86_64", Message: "file /usr/bin/pepper conflicts with salt"},
		{Kind: transaction.ProblemDiskSpace, Message: "needs 3MB on /"},
	}, nil)

	_, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true})
	assert.ErrorIs(t, err, errors.ErrTestTransaction)
	assert.Equal(t, []string{"pepper-20-1.x86_64: file /usr/bin/pepper conflicts with salt", "needs 3MB on /"}, errors.Details(err))

	last, err := e.store.Last()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestCommitReinstallReplans(t *testing.T) {
	e := newEnv(t)
	hole := mustRef(t, "hole-1-1.x86_64")
	path := e.local(hole)
	tx := transaction.New()
	_, err := tx.AddReinstall(hole, hole, nil)
	require.NoError(t, err)

	replans := 0
	replan := func() (*transaction.Transaction, error) {
		replans++
		fresh := transaction.New()
		_, err := fresh.AddReinstall(hole, hole, nil)
		return fresh, err
	}

	gomock.InOrder(
		e.inst.EXPECT().AddReinstall(hole, path).Return(nil),
		e.inst.EXPECT().Check().Return(nil),
		e.inst.EXPECT().Order().Return(nil),
		e.inst.EXPECT().Test(gomock.Any()).Return(nil, nil),
		e.inst.EXPECT().Clean(),
		e.inst.EXPECT().AddReinstall(hole, path).Return(nil),
		e.inst.EXPECT().Check().Return(nil),
		e.inst.EXPECT().Order().Return(nil),
		e.inst.EXPECT().DBVersion().Return("v1", nil),
		e.inst.EXPECT().Run(gomock.Any()).Return(transaction.Result{}, nil),
		e.inst.EXPECT().DBVersion().Return("v1", nil),
	)

	res, err := e.pipeline.Commit(context.Background(), tx, orchestrator.Options{AssumeYes: true, Replan: replan})
	require.NoError(t, err)
	assert.Equal(t, 1, replans)
	assert.Contains(t, e.phases, orchestrator.PhaseReordered)
	assert.NotSame(t, tx, res.Transaction)

	unit, err := e.store.Unit(res.UnitID)
	require.NoError(t, err)
	require.Len(t, unit.Ops, 1)
	assert.Equal(t, history.KindReinstall, unit.Ops[0].Kind)
}

func TestCommitPartialFailureRecordsAppliedSubset(t *testing.T) {
	e := newEnv(t)
	lotus := mustRef(t, "lotus-4-1.x86_64")
	tulip := mustRef(t, "tulip-2-1.x86_64")
	e.local(lotus)
	e.local(tulip)
	tx := transaction.New()
	_, err := tx.AddInstall(lotus, nil, model.ReasonUser)
	require.NoError(t, err)
	_, err = tx.AddInstall(tulip, nil, model.ReasonDependency)
	require.NoError(t, err)

	e.expectApply(transaction.Result{ReturnCode: 1, Errors: []transaction.ItemError{{Ref: tulip, Message: "unpack failed"}}})

	res, err := e.pipeline.Commit(context.Background(), tx, orchestrator.Options{AssumeYes: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTransactionIncomplete)
	assert.Equal(t, []string{"tulip-2-1.x86_64: unpack failed"}, errors.Details(err))
	assert.Equal(t, orchestrator.CodeFatal, res.Code)

	unit, err := e.store.Unit(res.UnitID)
	require.NoError(t, err)
	assert.Equal(t, 1, unit.ReturnCode)
	require.Len(t, unit.Ops, 1)
	assert.Equal(t, lotus, unit.Ops[0].New)
	assert.Equal(t, model.ReasonUser, e.store.ReasonOf(lotus))
	assert.Equal(t, model.ReasonUnknown, e.store.ReasonOf(tulip))
}

func TestCommitInterruptedBeforeExecution(t *testing.T) {
	e := newEnv(t)
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	e.local(newRef)

	ctx, cancel := context.WithCancel(context.Background())
	e.prompter.EXPECT().Confirm(gomock.Any()).DoAndReturn(func(string) (bool, error) {
		cancel()
		return true, nil
	})

	res, err := e.pipeline.Commit(ctx, upgradeTx(t, newRef, oldRef), orchestrator.Options{})
	assert.ErrorIs(t, err, errors.ErrInterrupted)
	assert.Equal(t, orchestrator.CodeFatal, res.Code)

	last, err := e.store.Last()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestCommitScriptsAndReporters(t *testing.T) {
	e := newEnv(t)
	ctrl := gomock.NewController(t)
	scripts := mocks.NewMockHookRunner(ctrl)
	reporter := mocks.NewMockReporter(ctrl)
	e.pipeline.Scripts = scripts
	e.pipeline.Reporters = []orchestrator.Reporter{reporter}

	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	e.local(newRef)
	e.expectApply(transaction.Result{})

	var id string
	gomock.InOrder(
		scripts.EXPECT().Execute(hooks.PreTransaction, gomock.Any()).DoAndReturn(func(_ hooks.HookType, hc hooks.HookContext) error {
			id = hc.TransactionID
			require.Len(t, hc.Entries, 1)
			assert.Equal(t, hooks.Entry{Op: "Upgrade", Installed: newRef.String(), Erased: oldRef.String()}, hc.Entries[0])
			return nil
		}),
		scripts.EXPECT().Execute(hooks.PostTransaction, gomock.Any()).Return(errors.ErrHookScript),
		reporter.EXPECT().Report(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, res *orchestrator.Result) error {
			assert.Equal(t, id, res.ID)
			assert.Equal(t, orchestrator.CodeSuccess, res.Code)
			return errors.New("smtp down")
		}),
	)

	res, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.CodeSuccess, res.Code)
}

func TestCommitPreTransactionScriptAborts(t *testing.T) {
	e := newEnv(t)
	ctrl := gomock.NewController(t)
	scripts := mocks.NewMockHookRunner(ctrl)
	e.pipeline.Scripts = scripts

	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	e.local(newRef)
	e.inst.EXPECT().AddInstall(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	e.inst.EXPECT().Check().Return(nil)
	e.inst.EXPECT().Order().Return(nil)
	e.inst.EXPECT().Test(gomock.Any()).Return(nil, nil)
	scripts.EXPECT().Execute(hooks.PreTransaction, gomock.Any()).Return(errors.ErrHookScript)

	_, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true})
	assert.ErrorIs(t, err, errors.ErrHookScript)
}

func TestCommitMetrics(t *testing.T) {
	e := newEnv(t)
	e.pipeline.Metrics = metrics.New()
	textfile := filepath.Join(t.TempDir(), "gotx.prom")

	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	e.local(newRef)
	e.expectApply(transaction.Result{})

	_, err := e.pipeline.Commit(context.Background(), upgradeTx(t, newRef, oldRef), orchestrator.Options{AssumeYes: true, MetricsTextfile: textfile})
	require.NoError(t, err)
	_, err = e.pipeline.Commit(context.Background(), transaction.New(), orchestrator.Options{})
	require.NoError(t, err)

	assert.FileExists(t, textfile)
	n, err := testutil.GatherAndCount(e.pipeline.Metrics.Registry(), "gotx_transactions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// installedUniverse is the PackageQuery used to undo a commit.
type installedUniverse struct {
	installed []model.PkgRef
	available []model.PkgRef
}

func (u *installedUniverse) Installed() []*model.Package {
	out := make([]*model.Package, 0, len(u.installed))
	for _, r := range u.installed {
		out = append(out, &model.Package{PkgRef: r, Repo: model.InstalledRepo})
	}
	return out
}

func (u *installedUniverse) Available(spec string) []*model.Package {
	var out []*model.Package
	for _, r := range u.available {
		if r.ExactMatch(spec) {
			out = append(out, &model.Package{PkgRef: r, Repo: "main"})
		}
	}
	return out
}

func TestPepperUpgradeCommitThenUndo(t *testing.T) {
	e := newEnv(t)
	newRef, oldRef := mustRef(t, "pepper-20-1.x86_64"), mustRef(t, "pepper-20-0.x86_64")
	e.local(newRef)
	e.expectApply(transaction.Result{})

	tx := upgradeTx(t, newRef, oldRef)
	require.Len(t, tx.Items(), 1)
	assert.Equal(t, transaction.OpUpgrade, tx.Items()[0].Op)

	res, err := e.pipeline.Commit(context.Background(), tx, orchestrator.Options{AssumeYes: true})
	require.NoError(t, err)

	u := &installedUniverse{installed: []model.PkgRef{newRef}, available: []model.PkgRef{oldRef, newRef}}
	undo, err := history.NewReplayer(e.store, u).Undo(res.UnitID)
	require.NoError(t, err)
	require.Len(t, undo.Items(), 1)
	item := undo.Items()[0]
	assert.Equal(t, transaction.OpDowngrade, item.Op)
	assert.Equal(t, oldRef, *item.Installed)
	assert.Equal(t, newRef, *item.Erased)
}

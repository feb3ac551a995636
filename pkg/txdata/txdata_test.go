package txdata

import (
	"testing"

	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkg(t *testing.T, nevra string) *model.Package {
	t.Helper()
	r, err := model.ParsePkgRef(nevra)
	require.NoError(t, err)
	return &model.Package{PkgRef: r, Repo: "main"}
}

func installed(t *testing.T, nevra string) *model.Package {
	t.Helper()
	p := pkg(t, nevra)
	p.Repo = model.InstalledRepo
	return p
}

type stubLookup []*model.Package

func (s stubLookup) Search(pattern string) []*model.Package {
	var out []*model.Package
	for _, p := range s {
		if p.ExactMatch(pattern) || p.GlobMatch(pattern) {
			out = append(out, p)
		}
	}
	return out
}

func TestAddIsIdempotent(t *testing.T) {
	ts := New()
	p := pkg(t, "foo-1-1.x86_64")

	first := ts.Add(NewMember(p, TSInstall, OutInstall))
	second := ts.Add(NewMember(p, TSInstall, OutInstall))

	assert.Same(t, first, second)
	assert.Equal(t, 1, ts.Len())
	assert.Len(t, ts.GetMembersOf(p.Pkgtup()), 1)
	assert.Equal(t, "i", p.State)
}

func TestAddSamePkgtupDifferentState(t *testing.T) {
	ts := New()
	p := pkg(t, "foo-1-1.x86_64")
	ts.Add(NewMember(p, TSErase, OutErase))
	ts.Add(NewMember(p, TSInstall, OutInstall))

	assert.Equal(t, 2, ts.Len())
	assert.Len(t, ts.GetMembersByName("foo"), 2)
}

func TestRemove(t *testing.T) {
	ts := New()
	foo := pkg(t, "foo-1-1.x86_64")
	bar := pkg(t, "bar-1-1.x86_64")
	ts.AddInstall(foo, model.ReasonUser)
	ts.AddInstall(bar, model.ReasonDependency)

	removed := ts.Remove(foo.Pkgtup())
	require.Len(t, removed, 1)
	assert.False(t, ts.Exists(foo.Pkgtup()))
	assert.Empty(t, ts.GetMembersByName("foo"))
	assert.Empty(t, foo.State)
	assert.True(t, ts.Exists(bar.Pkgtup()))

	assert.Nil(t, ts.Remove(foo.Pkgtup()))
	assert.Equal(t, 1, ts.Len())
}

func TestMatchNaevr(t *testing.T) {
	ts := New()
	ts.AddInstall(pkg(t, "foo-1-1.x86_64"), model.ReasonUser)
	ts.AddInstall(pkg(t, "foo-1-1.i686"), model.ReasonUser)
	ts.AddInstall(pkg(t, "bar-2-1.x86_64"), model.ReasonUser)

	assert.Len(t, ts.MatchNaevr("foo", "", nil, "", ""), 2)
	assert.Len(t, ts.MatchNaevr("foo", "i686", nil, "", ""), 1)
	assert.Len(t, ts.MatchNaevr("", "x86_64", nil, "", ""), 2)
	zero := uint(0)
	assert.Len(t, ts.MatchNaevr("bar", "", &zero, "2", "1"), 1)
	one := uint(1)
	assert.Empty(t, ts.MatchNaevr("bar", "", &one, "", ""))
}

func TestDeselectExactVersusGlob(t *testing.T) {
	build := func() (*TransactionData, stubLookup) {
		ts := New()
		foo := pkg(t, "foo-1-1.x86_64")
		foobar := pkg(t, "foobar-2-1.x86_64")
		ts.AddInstall(foo, model.ReasonUser)
		ts.AddInstall(foobar, model.ReasonUser)
		return ts, stubLookup{foo, foobar}
	}

	t.Run("exact name", func(t *testing.T) {
		ts, lookup := build()
		removed := ts.Deselect("foo", lookup)
		require.Len(t, removed, 1)
		assert.Equal(t, "foo-1-1.x86_64", removed[0].Ref().String())
		assert.Len(t, ts.GetMembersByName("foobar"), 1)
	})

	t.Run("glob", func(t *testing.T) {
		ts, lookup := build()
		removed := ts.Deselect("foo*", lookup)
		assert.Len(t, removed, 2)
		assert.Equal(t, 0, ts.Len())
	})

	t.Run("glob without lookup", func(t *testing.T) {
		ts, _ := build()
		assert.Len(t, ts.Deselect("foo*", nil), 2)
	})

	t.Run("no match", func(t *testing.T) {
		ts, lookup := build()
		assert.Empty(t, ts.Deselect("baz", lookup))
		assert.Equal(t, 2, ts.Len())
	})
}

func TestDeselectScavengesConditionals(t *testing.T) {
	ts := New()
	foo := pkg(t, "foo-1-1.x86_64")
	extra := pkg(t, "foo-docs-1-1.noarch")
	other := pkg(t, "bar-docs-1-1.noarch")
	ts.AddInstall(foo, model.ReasonGroup)
	ts.AddConditional("foo", extra)
	ts.AddConditional("bar", other)

	ts.Deselect("foo*", stubLookup{foo, extra, other})

	assert.Empty(t, ts.Conditionals("foo"))
	assert.Len(t, ts.Conditionals("bar"), 1)
}

func TestConvenienceAddsWireBackReferences(t *testing.T) {
	ts := New()
	newPepper := pkg(t, "pepper-20-1.x86_64")
	oldPepper := installed(t, "pepper-20-0.x86_64")
	m := ts.AddUpdate(newPepper, oldPepper, model.ReasonUser)

	assert.Equal(t, []model.PkgRef{oldPepper.PkgRef}, m.Updates)
	olds := ts.GetMembersOf(oldPepper.Pkgtup())
	require.Len(t, olds, 1)
	assert.Equal(t, TSUpdated, olds[0].TSState)
	assert.Equal(t, []model.PkgRef{newPepper.PkgRef}, olds[0].UpdatedBy)

	lotus := pkg(t, "lotus-4-1.x86_64")
	lily := installed(t, "lily-1-1.x86_64")
	obs := ts.AddObsoleting(lotus, lily, model.ReasonUser)
	assert.Equal(t, []model.PkgRef{lily.PkgRef}, obs.Obsoletes)
	assert.Equal(t, []model.PkgRef{lotus.PkgRef}, ts.GetMembersOf(lily.Pkgtup())[0].ObsoletedBy)

	low := pkg(t, "tour-4-0.noarch")
	high := installed(t, "tour-5-0.noarch")
	dg := ts.AddDowngrade(low, high, model.ReasonUser)
	assert.Equal(t, []model.PkgRef{high.PkgRef}, dg.Downgrades)
	assert.Equal(t, []model.PkgRef{low.PkgRef}, ts.GetMembersOf(high.Pkgtup())[0].DowngradedBy)
}

func TestFreeze(t *testing.T) {
	ts := New()
	newPepper := pkg(t, "pepper-20-1.x86_64")
	oldPepper := installed(t, "pepper-20-0.x86_64")
	ts.AddUpdate(newPepper, oldPepper, model.ReasonUser)

	lotus := pkg(t, "lotus-4-1.x86_64")
	ts.AddInstall(lotus, model.ReasonDependency)
	ts.AddObsoleting(lotus, installed(t, "lily-1-1.x86_64"), model.ReasonDependency)

	ts.AddErase(installed(t, "trampoline-2-1.noarch"), model.ReasonUser)

	hole := pkg(t, "hole-1-1.x86_64")
	ts.AddReinstall(hole, installed(t, "hole-1-1.x86_64"), model.ReasonUser)

	ts.AddDowngrade(pkg(t, "tour-4-0.noarch"), installed(t, "tour-5-0.noarch"), model.ReasonUser)

	tx, err := ts.Freeze()
	require.NoError(t, err)

	items := tx.Items()
	require.Len(t, items, 5)

	assert.Equal(t, transaction.OpUpgrade, items[0].Op)
	assert.Equal(t, "pepper-20-1.x86_64", items[0].Installed.String())
	assert.Equal(t, "pepper-20-0.x86_64", items[0].Erased.String())
	assert.Equal(t, model.ReasonUser, items[0].Reason)

	assert.Equal(t, transaction.OpInstall, items[1].Op)
	assert.Equal(t, []model.PkgRef{{Name: "lily", Version: "1", Release: "1", Arch: "x86_64"}}, items[1].Obsoleted)
	assert.Equal(t, model.ReasonDependency, items[1].Reason)

	assert.Equal(t, transaction.OpErase, items[2].Op)
	assert.Equal(t, transaction.OpReinstall, items[3].Op)
	assert.Equal(t, transaction.OpDowngrade, items[4].Op)
	assert.Equal(t, "tour-5-0.noarch", items[4].Erased.String())
}

func TestFreezeRejectsConflicts(t *testing.T) {
	ts := New()
	p := pkg(t, "foo-1-1.x86_64")
	ts.AddInstall(p, model.ReasonUser)
	ts.AddErase(p, model.ReasonUser)

	_, err := ts.Freeze()
	assert.Error(t, err)
}

func TestMakeLists(t *testing.T) {
	ts := New()
	ts.AddInstall(pkg(t, "zsh-5.9-1.x86_64"), model.ReasonUser)
	ts.AddInstall(pkg(t, "libzsh-5.9-1.x86_64"), model.ReasonDependency)
	ts.AddUpdate(pkg(t, "pepper-20-1.x86_64"), installed(t, "pepper-20-0.x86_64"), model.ReasonUser)
	ts.AddUpdate(pkg(t, "salt-2-1.noarch"), installed(t, "salt-1-1.noarch"), model.ReasonDependency)
	ts.AddErase(installed(t, "trampoline-2-1.noarch"), model.ReasonUser)
	ts.AddErase(installed(t, "springs-1-1.noarch"), model.ReasonDependency)
	ts.AddObsoleting(pkg(t, "lotus-4-1.x86_64"), installed(t, "lily-1-1.x86_64"), model.ReasonUser)
	ts.AddReinstall(pkg(t, "hole-1-1.x86_64"), installed(t, "hole-1-1.x86_64"), model.ReasonUser)
	ts.AddDowngrade(pkg(t, "tour-4-0.noarch"), installed(t, "tour-5-0.noarch"), model.ReasonUser)
	failed := ts.AddInstall(pkg(t, "broken-1-1.noarch"), model.ReasonUser)
	failed.OutputState = OutFailed

	names := func(ms []*TransactionMember) []string {
		out := make([]string, 0, len(ms))
		for _, m := range ms {
			out = append(out, m.Pkg.Name)
		}
		return out
	}

	l := ts.MakeLists(true, true)
	assert.Equal(t, []string{"lotus", "zsh"}, names(l.Installed))
	assert.Equal(t, []string{"libzsh"}, names(l.DepInstalled))
	assert.Equal(t, []string{"pepper"}, names(l.Updated))
	assert.Equal(t, []string{"salt"}, names(l.DepUpdated))
	assert.Equal(t, []string{"trampoline"}, names(l.Removed))
	assert.Equal(t, []string{"springs"}, names(l.DepRemoved))
	assert.Equal(t, []string{"lily"}, names(l.Obsoleted))
	assert.Equal(t, []string{"hole"}, names(l.Reinstalled))
	assert.Equal(t, []string{"tour"}, names(l.Downgraded))
	assert.Equal(t, []string{"broken"}, names(l.Failed))

	plain := ts.MakeLists(false, false)
	assert.Empty(t, plain.Reinstalled)
	assert.Empty(t, plain.Downgraded)
	assert.Equal(t, []string{"hole", "lotus", "tour", "zsh"}, names(plain.Installed))
	assert.Equal(t, []string{"hole", "tour", "trampoline"}, names(plain.Removed))
}

func TestAddGroupMember(t *testing.T) {
	ts := New()
	p := pkg(t, "gimp-2.10-1.x86_64")
	ts.AddInstall(p, model.ReasonDependency)

	assert.True(t, ts.AddGroupMember(p.Pkgtup(), "graphics"))
	assert.True(t, ts.AddGroupMember(p.Pkgtup(), "graphics"))
	assert.False(t, ts.AddGroupMember(pkg(t, "other-1-1.noarch").Pkgtup(), "graphics"))
	assert.Equal(t, []string{"graphics"}, ts.GetMembersOf(p.Pkgtup())[0].Groups)

	l := ts.MakeLists(false, false)
	assert.Len(t, l.Installed, 1)
	assert.Empty(t, l.DepInstalled)
}

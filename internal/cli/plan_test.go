package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/txdata"
)

type packageList []*model.Package

func (l packageList) Search(pattern string) []*model.Package {
	var out []*model.Package
	for _, p := range l {
		if p.ExactMatch(pattern) || p.GlobMatch(pattern) {
			out = append(out, p)
		}
	}
	return out
}

func testPackage(t *testing.T, nevra string) *model.Package {
	t.Helper()
	ref, err := model.ParsePkgRef(nevra)
	require.NoError(t, err)
	return &model.Package{PkgRef: ref, Repo: "main"}
}

func TestExclude(t *testing.T) {
	lily := testPackage(t, "lily-1.0-1.noarch")
	lotus := testPackage(t, "lotus-2.0-1.x86_64")
	lotusDocs := testPackage(t, "lotus-docs-2.0-1.noarch")

	ts := txdata.New()
	ts.AddInstall(lily, model.ReasonUser)
	ts.AddInstall(lotus, model.ReasonUser)
	ts.AddInstall(lotusDocs, model.ReasonDependency)

	exclude(ts, []string{"lotus-d*", "lily", "nothing-here"}, packageList{lily, lotus, lotusDocs})

	require.Equal(t, 1, ts.Len())
	assert.Equal(t, lotus.PkgRef, ts.GetMembers()[0].Ref())

	tx, err := ts.Freeze()
	require.NoError(t, err)
	assert.Equal(t, []model.PkgRef{lotus.PkgRef}, tx.InstallSet())
}

package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/gotx/pkg/history"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/glorpus-work/gotx/pkg/transaction"
	"github.com/glorpus-work/gotx/pkg/txdata"
)

func pkgOf(t *testing.T, nevra, repo string) *model.Package {
	t.Helper()
	ref, err := model.ParsePkgRef(nevra)
	require.NoError(t, err)
	return &model.Package{PkgRef: ref, Repo: repo}
}

func TestPrintSummaryFromWorkingSet(t *testing.T) {
	ts := txdata.New()
	ts.AddInstall(pkgOf(t, "lotus-2.0-1.x86_64", "main"), model.ReasonUser)
	ts.AddInstall(pkgOf(t, "lily-1.0-1.noarch", "main"), model.ReasonDependency)
	tx, err := ts.Freeze()
	require.NoError(t, err)

	var out bytes.Buffer
	printSummary(&out, tx, ts, true)

	s := out.String()
	assert.Regexp(t, `Installing:\n lotus\.x86_64\s+2\.0-1\s+main`, s)
	assert.Regexp(t, `Installing dependencies:\n lily\.noarch\s+1\.0-1\s+main`, s)
	assert.Contains(t, s, "Transaction Summary")
	assert.Contains(t, s, "Install    2 package(s)")
}

func TestPrintSummaryFromTransaction(t *testing.T) {
	tx := transaction.New()
	_, err := tx.AddErase(pkgOf(t, "lotus-2.0-1.x86_64", model.InstalledRepo).PkgRef)
	require.NoError(t, err)

	var out bytes.Buffer
	printSummary(&out, tx, nil, true)

	assert.Contains(t, out.String(), " Erase lotus-2.0-1.x86_64")
	assert.Contains(t, out.String(), "Erase      1 package(s)")
}

func TestPrintSummaryEmpty(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, transaction.New(), nil, true)
	assert.Empty(t, out.String())
}

func TestPrintUnits(t *testing.T) {
	lotus := pkgOf(t, "lotus-2.0-1.x86_64", "").PkgRef
	lily := pkgOf(t, "lily-1.0-1.noarch", "").PkgRef
	units := []*history.Unit{
		{
			ID:      2,
			Begin:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Cmdline: "erase lotus",
			Ops: []history.NEVRAOperation{
				{Kind: history.KindErase, New: lotus},
				{Kind: history.KindErase, New: lily},
			},
			AlteredBeforeBase: true,
		},
		{
			ID:         1,
			Begin:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Cmdline:    "install lotus",
			ReturnCode: 1,
			Ops: []history.NEVRAOperation{
				{Kind: history.KindInstall, New: lotus},
			},
		},
	}

	var out bytes.Buffer
	printUnits(&out, units)

	s := out.String()
	assert.Regexp(t, `2\s+erase lotus\s+\S+ \S+\s+Erase\s+<`, s)
	assert.Regexp(t, `1\s+install lotus\s+\S+ \S+\s+Install\s+E`, s)
}

func TestPrintUnit(t *testing.T) {
	old := pkgOf(t, "lotus-1.0-1.x86_64", "").PkgRef
	u := &history.Unit{
		ID:              3,
		Cmdline:         "upgrade",
		DBVersionBefore: "abc",
		DBVersionAfter:  "def",
		Ops: []history.NEVRAOperation{
			{Kind: history.KindUpdate, New: pkgOf(t, "lotus-2.0-1.x86_64", "").PkgRef, Old: &old},
		},
		AlteredAfterBase: true,
	}

	var out bytes.Buffer
	printUnit(&out, u)

	s := out.String()
	assert.Contains(t, s, "Transaction ID : 3")
	assert.Contains(t, s, "Command Line   : upgrade")
	assert.Contains(t, s, "altered outside gotx after")
	assert.Contains(t, s, "Update lotus-2.0-1.x86_64 (from lotus-1.0-1.x86_64)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestPrintUnitsEmpty(t *testing.T) {
	var out bytes.Buffer
	printUnits(&out, nil)
	assert.Equal(t, "No transactions recorded\n", out.String())
}

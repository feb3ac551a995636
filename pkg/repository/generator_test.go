package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/installer"
	"github.com/glorpus-work/gotx/pkg/model"
)

func buildArchive(t *testing.T, repoDir string, p *model.Package) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), p.String())
	meta, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(src, "meta"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "data", "usr", "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "meta", "package.json"), meta, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "data", "usr", "bin", p.Name), []byte(p.String()), 0o755))

	out := filepath.Join(repoDir, "Packages", p.String()+installer.FileExtension)
	require.NoError(t, os.MkdirAll(filepath.Dir(out), 0o755))
	require.NoError(t, installer.Build(context.Background(), src, out))
	return out
}

func TestGenerator(t *testing.T) {
	dir := t.TempDir()
	lotus := pkg(t, "lotus-4-1.x86_64")
	lotus.Location = ""
	lotus.Requires = []string{"lily >= 1"}
	buildArchive(t, dir, lotus)
	buildArchive(t, dir, &model.Package{PkgRef: model.PkgRef{Name: "lily", Version: "2", Release: "1", Arch: "noarch"}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("not a package"), 0o644))

	g := NewGenerator(dir)
	n, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	idx, err := ParseIndexFromFile(filepath.Join(dir, "repodata", "index.json"))
	require.NoError(t, err)
	require.Len(t, idx.Packages, 2)
	byName := map[string]*model.Package{}
	for _, p := range idx.Packages {
		byName[p.Name] = p
	}
	assert.Equal(t, "Packages/lotus-4-1.x86_64.gotx", byName["lotus"].Location)
	assert.Equal(t, []string{"lily >= 1"}, byName["lotus"].Requires)
	assert.Len(t, byName["lotus"].Checksum, 64)
	assert.Positive(t, byName["lily"].Size)

	_, err = g.Generate(context.Background())
	assert.ErrorIs(t, err, errors.ErrValidation)

	g.ForceOverwrite = true
	_, err = g.Generate(context.Background())
	assert.NoError(t, err)

	// the generated index loads into a sack
	r := mustRepo(t, "main", "file://"+filepath.ToSlash(dir))
	s := NewSack("x86_64", nil)
	require.NoError(t, s.AddRepository(r, idx))
	assert.NotNil(t, s.Newest("lotus"))
}

func TestGeneratorErrors(t *testing.T) {
	_, err := NewGenerator("").Generate(context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidPath)

	_, err = NewGenerator(filepath.Join(t.TempDir(), "absent")).Generate(context.Background())
	assert.ErrorIs(t, err, errors.ErrInvalidPath)

	_, err = NewGenerator(t.TempDir()).Generate(context.Background())
	assert.ErrorIs(t, err, errors.ErrValidation)
}

package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkg(t *testing.T, nevra string, extra ...func(*model.Package)) *model.Package {
	t.Helper()
	ref, err := model.ParsePkgRef(nevra)
	require.NoError(t, err)
	p := &model.Package{PkgRef: ref, Location: "Packages/" + nevra + ".gotx"}
	for _, f := range extra {
		f(p)
	}
	return p
}

func mustRepo(t *testing.T, name, baseURL string) *Repository {
	t.Helper()
	r, err := New(name, baseURL)
	require.NoError(t, err)
	return r
}

func TestParseIndex(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		idx, err := ParseIndex([]byte(`{"format_version":"1","packages":[{"name":"pepper","version":"20","release":"1","arch":"x86_64","size":42}]}`))
		require.NoError(t, err)
		require.Len(t, idx.Packages, 1)
		assert.Equal(t, "pepper-20-1.x86_64", idx.Packages[0].String())
		assert.Equal(t, int64(42), idx.Packages[0].Size)
	})

	for name, data := range map[string]string{
		"not json":         `{`,
		"no version":       `{"packages":[]}`,
		"incomplete nevra": `{"format_version":"1","packages":[{"name":"pepper"}]}`,
		"empty release":    `{"format_version":"1","packages":[{"name":"bar","version":"2","arch":"noarch"}]}`,
		"dash in version":  `{"format_version":"1","packages":[{"name":"foo","version":"1.0-beta","release":"1","arch":"x86_64"}]}`,
		"null package":     `{"format_version":"1","packages":[null]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIndex([]byte(data))
			assert.ErrorIs(t, err, errors.ErrIndexInvalid)
		})
	}
}

func TestIndexSaveAndEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repodata", "index.json")
	idx := NewIndex()
	old := pkg(t, "pepper-20-0.x86_64")
	idx.AddPackage(old)
	idx.AddPackage(pkg(t, "salt-1-1.noarch"))
	replaced := pkg(t, "pepper-20-0.x86_64", func(p *model.Package) { p.Summary = "hot" })
	idx.AddPackage(replaced)
	require.Len(t, idx.Packages, 2)
	assert.True(t, idx.RemovePackage(old.PkgRef))
	require.NoError(t, idx.Save(path))

	loaded, err := ParseIndexFromFile(path)
	require.NoError(t, err)
	require.Len(t, loaded.Packages, 1)
	assert.Equal(t, "salt", loaded.Packages[0].Name)
	assert.False(t, loaded.RemovePackage(old.PkgRef))

	_, err = ParseIndexFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewRepository(t *testing.T) {
	r := mustRepo(t, "main", "https://repo.example/el9")
	assert.Equal(t, "https://repo.example/el9/repodata/index.json", r.IndexURL().String())

	local := mustRepo(t, "local", "/srv/repo")
	assert.Equal(t, "file:///srv/repo/repodata/index.json", local.IndexURL().String())

	_, err := New("", "https://x")
	assert.ErrorIs(t, err, errors.ErrEmptyRepositoryName)
	_, err = New("main", "")
	assert.ErrorIs(t, err, errors.ErrRepositoryURLEmpty)
}

func TestIsCacheStale(t *testing.T) {
	dir := t.TempDir()
	r := mustRepo(t, "main", "https://repo.example/")
	assert.True(t, r.IsCacheStale(dir, time.Hour))

	require.NoError(t, NewIndex().Save(r.CachePath(dir)))
	assert.False(t, r.IsCacheStale(dir, time.Hour))
	assert.False(t, r.IsCacheStale(dir, 0))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(r.CachePath(dir), past, past))
	assert.True(t, r.IsCacheStale(dir, time.Hour))
}

func newTestSack(t *testing.T) *Sack {
	t.Helper()
	installed := []*model.Package{
		pkg(t, "pepper-20-0.x86_64"),
		pkg(t, "tour-5-0.noarch"),
	}
	s := NewSack("x86_64", installed)

	main := NewIndex()
	for _, nevra := range []string{
		"pepper-19-1.x86_64",
		"pepper-20-0.x86_64",
		"pepper-20-1.x86_64",
		"pepper-20-1.src",
		"pepper-20-2.aarch64",
		"tour-5-0.noarch",
		"lotus-4-1.x86_64",
	} {
		main.AddPackage(pkg(t, nevra))
	}
	main.AddPackage(pkg(t, "lily-2-1.noarch", func(p *model.Package) {
		p.Provides = []string{"flower = 2"}
		p.Obsoletes = []string{"daisy < 2"}
	}))
	require.NoError(t, s.AddRepository(mustRepo(t, "main", "https://repo.example/main"), main))
	return s
}

func TestSackFiltersArchAndResolvesLocations(t *testing.T) {
	s := newTestSack(t)

	for _, p := range s.AllAvailable() {
		assert.NotEqual(t, "src", p.Arch)
		assert.NotEqual(t, "aarch64", p.Arch)
		assert.Equal(t, "main", p.Repo)
	}
	p, ok := s.Package(pkg(t, "lotus-4-1.x86_64").PkgRef)
	require.True(t, ok)
	assert.Equal(t, "https://repo.example/main/Packages/lotus-4-1.x86_64.gotx", p.Location)

	inst := s.Installed()
	require.Len(t, inst, 2)
	assert.True(t, inst[0].Installed())
}

func TestSackPriority(t *testing.T) {
	s := newTestSack(t)
	mirror := mustRepo(t, "mirror", "https://mirror.example/")
	mirror.Priority = 0
	s.repos["main"].Priority = 10

	idx := NewIndex()
	idx.AddPackage(pkg(t, "lotus-4-1.x86_64"))
	require.NoError(t, s.AddRepository(mirror, idx))

	p, ok := s.Package(pkg(t, "lotus-4-1.x86_64").PkgRef)
	require.True(t, ok)
	assert.Equal(t, "mirror", p.Repo)
	assert.Len(t, s.Available("lotus"), 1)

	assert.ErrorIs(t, s.AddRepository(mirror, idx), errors.ErrRepositoryExists)
}

func TestSackQueries(t *testing.T) {
	s := newTestSack(t)

	names := func(pkgs []*model.Package) []string {
		out := make([]string, 0, len(pkgs))
		for _, p := range pkgs {
			out = append(out, p.String())
		}
		return out
	}

	assert.Equal(t, []string{"pepper-19-1.x86_64", "pepper-20-0.x86_64", "pepper-20-1.x86_64"}, names(s.Available("pepper")))
	assert.Equal(t, []string{"pepper-20-1.x86_64"}, names(s.Available("pepper-20-1.x86_64")))
	assert.Equal(t, []string{"lily-2-1.noarch", "lotus-4-1.x86_64"}, names(s.Available("l*")))
	assert.Equal(t, []string{"pepper-20-0.x86_64", "pepper-19-1.x86_64", "pepper-20-0.x86_64", "pepper-20-1.x86_64"}, names(s.Search("pepper*")))

	assert.Equal(t, []string{"pepper-20-1.x86_64"}, names(s.Upgrades()))
	assert.Equal(t, "pepper-19-1.x86_64", s.Downgrade(s.InstalledByName("pepper")[0]).String())
	assert.Nil(t, s.Downgrade(s.InstalledByName("tour")[0]))

	assert.Equal(t, "lily-2-1.noarch", s.Newest("flower").String())
	assert.Equal(t, "pepper-20-1.x86_64", s.Newest("pepper").String())
	assert.Nil(t, s.Newest("salt"))
	assert.Equal(t, []string{"lily-2-1.noarch"}, names(s.Obsoleters("daisy")))

	assert.True(t, s.IsInstalled(pkg(t, "tour-5-0.noarch").PkgRef))
	assert.False(t, s.IsInstalled(pkg(t, "lotus-4-1.x86_64").PkgRef))
	assert.NotNil(t, s.InstalledProvider("tour"))
}

func TestSackLoadCached(t *testing.T) {
	dir := t.TempDir()
	main := mustRepo(t, "main", "https://repo.example/")
	main.GPGKeys = []string{"/etc/gotx/keys/main.asc"}
	disabled := mustRepo(t, "disabled", "https://off.example/")
	disabled.Enabled = false
	uncached := mustRepo(t, "uncached", "https://new.example/")

	idx := NewIndex()
	idx.AddPackage(pkg(t, "lotus-4-1.x86_64"))
	require.NoError(t, idx.Save(main.CachePath(dir)))

	s := NewSack("x86_64", nil)
	require.NoError(t, s.LoadCached([]*Repository{main, disabled, uncached}, dir))
	assert.Len(t, s.AllAvailable(), 1)
	assert.Equal(t, map[string][]string{"main": {"/etc/gotx/keys/main.asc"}}, s.GPGKeys())

	require.NoError(t, os.WriteFile(uncached.CachePath(dir), []byte("{"), 0o644))
	assert.ErrorIs(t, NewSack("x86_64", nil).LoadCached([]*Repository{uncached}, dir), errors.ErrIndexInvalid)
}

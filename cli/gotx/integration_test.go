//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/gotx/pkg/model"
)

type testEnv struct {
	t       *testing.T
	root    string
	cfgPath string
	repoDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tempDir := t.TempDir()
	return &testEnv{
		t:       t,
		root:    filepath.Join(tempDir, "root"),
		cfgPath: filepath.Join(tempDir, "gotx.yaml"),
		repoDir: filepath.Join(tempDir, "repo"),
	}
}

// run executes gotx with args against the test configuration and returns
// its standard output.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.cfgPath, "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "gotx %s\n%s", strings.Join(args, " "), out)
	return out
}

// pack builds p into the repository directory through the pack command.
func (e *testEnv) pack(p *model.Package) {
	e.t.Helper()
	src := filepath.Join(e.t.TempDir(), p.Name)
	meta, err := json.Marshal(p)
	require.NoError(e.t, err)
	require.NoError(e.t, os.MkdirAll(filepath.Join(src, "meta"), 0o755))
	require.NoError(e.t, os.MkdirAll(filepath.Join(src, "data", "usr", "bin"), 0o755))
	require.NoError(e.t, os.WriteFile(filepath.Join(src, "meta", "package.json"), meta, 0o644))
	require.NoError(e.t, os.WriteFile(filepath.Join(src, "data", "usr", "bin", p.Name), []byte(p.String()), 0o755))

	outDir := filepath.Join(e.repoDir, "Packages")
	require.NoError(e.t, os.MkdirAll(outDir, 0o755))
	out := e.mustRun("pack", src, "-o", outDir)
	assert.Contains(e.t, out, p.String()+".gotx")
}

// serve indexes the repository, serves it and writes a configuration that
// points at it.
func (e *testEnv) serve() {
	e.t.Helper()
	e.mustRun("repo", "index", e.repoDir, "--force")
	srv := httptest.NewServer(http.FileServer(http.Dir(e.repoDir)))
	e.t.Cleanup(srv.Close)

	base := filepath.Dir(e.cfgPath)
	yamlContent := "settings:\n" +
		"  root_dir: " + e.root + "\n" +
		"  state_dir: " + filepath.Join(base, "state") + "\n" +
		"  cache_dir: " + filepath.Join(base, "cache") + "\n" +
		"  keyring_dir: " + filepath.Join(base, "keys") + "\n" +
		"  hooks_dir: " + filepath.Join(base, "hooks") + "\n" +
		"  arch: x86_64\n" +
		"  gpgcheck: false\n" +
		"  http_timeout: 5s\n" +
		"  log_level: error\n" +
		"repositories:\n" +
		"  - name: main\n" +
		"    baseurl: " + srv.URL + "/\n"
	require.NoError(e.t, os.WriteFile(e.cfgPath, []byte(yamlContent), 0o600))
	e.mustRun("makecache")
}

func pkgOf(t *testing.T, nevra string, requires ...string) *model.Package {
	t.Helper()
	ref, err := model.ParsePkgRef(nevra)
	require.NoError(t, err)
	return &model.Package{PkgRef: ref, Summary: "test package " + ref.Name, Requires: requires}
}

func TestInstallEraseAndUndo(t *testing.T) {
	e := newTestEnv(t)
	e.pack(pkgOf(t, "lily-1.0-1.noarch"))
	e.pack(pkgOf(t, "lotus-2.0-1.x86_64", "lily"))
	e.serve()

	out := e.mustRun("search", "l*")
	assert.Contains(t, out, "lotus.x86_64")
	assert.Contains(t, out, "lily.noarch")

	out = e.mustRun("-y", "install", "lotus")
	assert.Contains(t, out, "Complete!")
	assert.FileExists(t, filepath.Join(e.root, "usr", "bin", "lotus"))
	assert.FileExists(t, filepath.Join(e.root, "usr", "bin", "lily"))

	out = e.mustRun("list")
	assert.Regexp(t, `lotus\.x86_64\s+2\.0-1\s+user`, out)
	assert.Regexp(t, `lily\.noarch\s+1\.0-1\s+dep`, out)

	out = e.mustRun("history", "list")
	assert.Contains(t, out, "install lotus")
	assert.Contains(t, out, "Install")

	out = e.mustRun("history", "userinstalled")
	assert.Equal(t, "lotus-2.0-1.x86_64\n", out)

	out = e.mustRun("-y", "install", "lotus")
	assert.Contains(t, out, "Nothing to do.")

	e.mustRun("-y", "history", "undo", "last")
	assert.NoFileExists(t, filepath.Join(e.root, "usr", "bin", "lotus"))
	assert.NoFileExists(t, filepath.Join(e.root, "usr", "bin", "lily"))

	e.mustRun("-y", "history", "redo", "1")
	assert.FileExists(t, filepath.Join(e.root, "usr", "bin", "lotus"))

	e.mustRun("-y", "erase", "lotus")
	assert.NoFileExists(t, filepath.Join(e.root, "usr", "bin", "lotus"))
	assert.NoFileExists(t, filepath.Join(e.root, "usr", "bin", "lily"), "unneeded dependency is cleaned up")

	out = e.mustRun("history", "info", "last")
	assert.Contains(t, out, "Erase lotus-2.0-1.x86_64")

	e.mustRun("clean", "metadata")
	out = e.mustRun("search", "lotus")
	assert.Contains(t, out, "No matches found")
}

func TestUpgrade(t *testing.T) {
	e := newTestEnv(t)
	e.pack(pkgOf(t, "lotus-1.0-1.x86_64"))
	e.serve()
	e.mustRun("-y", "install", "lotus")

	e.pack(pkgOf(t, "lotus-1.1-1.x86_64"))
	e.mustRun("repo", "index", e.repoDir, "--force")
	e.mustRun("makecache", "--force")

	out := e.mustRun("-y", "upgrade")
	assert.Contains(t, out, "Complete!")

	out = e.mustRun("list", "--name", "lotus")
	assert.Contains(t, out, "1.1-1")

	e.mustRun("-y", "history", "rollback", "1")
	out = e.mustRun("list")
	assert.Contains(t, out, "1.0-1")
}

func TestInstallExclude(t *testing.T) {
	e := newTestEnv(t)
	e.pack(pkgOf(t, "lily-1.0-1.noarch"))
	e.pack(pkgOf(t, "lotus-2.0-1.x86_64"))
	e.serve()

	out := e.mustRun("-y", "install", "lily", "lotus", "--exclude", "lily")
	assert.Contains(t, out, "Complete!")
	assert.FileExists(t, filepath.Join(e.root, "usr", "bin", "lotus"))
	assert.NoFileExists(t, filepath.Join(e.root, "usr", "bin", "lily"))

	out = e.mustRun("-y", "install", "lily", "-x", "l*")
	assert.Contains(t, out, "Nothing to do.")
	assert.NoFileExists(t, filepath.Join(e.root, "usr", "bin", "lily"))
}

func TestAssumeNoAborts(t *testing.T) {
	e := newTestEnv(t)
	e.pack(pkgOf(t, "lotus-1.0-1.x86_64"))
	e.serve()

	out, err := e.run("--assumeno", "install", "lotus")
	require.Error(t, err)
	assert.Contains(t, out, "Operation aborted.")
	assert.NoFileExists(t, filepath.Join(e.root, "usr", "bin", "lotus"))
}

func TestInstallUnknownPackage(t *testing.T) {
	e := newTestEnv(t)
	e.pack(pkgOf(t, "lotus-1.0-1.x86_64"))
	e.serve()

	_, err := e.run("-y", "install", "nonexistent")
	require.Error(t, err)
}

package hooks_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() hooks.HookContext {
	return hooks.HookContext{
		TransactionID: "4c1f0c7e",
		RootDir:       "/",
		Entries: []hooks.Entry{
			{Op: "Upgrade", Installed: "pepper-20-1.x86_64", Erased: "pepper-20-0.x86_64"},
			{Op: "Erase", Erased: "tour-5-0.noarch"},
		},
	}
}

func TestAddHook(t *testing.T) {
	tests := []struct {
		name    string
		hook    hooks.Hook
		wantErr error
	}{
		{name: "pre-transaction", hook: hooks.Hook{Type: hooks.PreTransaction, Content: "// nothing"}},
		{name: "post-transaction", hook: hooks.Hook{Type: hooks.PostTransaction, Content: "// nothing"}},
		{name: "empty type", hook: hooks.Hook{Content: "x := 1"}, wantErr: hooks.ErrHookTypeEmpty},
		{name: "unknown type", hook: hooks.Hook{Type: "pre-install"}, wantErr: errors.ErrHookExecution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := hooks.NewHookManager()
			err := manager.AddHook(tt.hook)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, manager.HasHook(tt.hook.Type))
				return
			}
			require.NoError(t, err)
			assert.True(t, manager.HasHook(tt.hook.Type))
		})
	}
}

func TestExecuteSeesTransaction(t *testing.T) {
	manager := hooks.NewHookManager()
	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.PreTransaction, Content: `
tx := import("transaction")
err := ""
if len(tx.items) != 2 { err = "wrong item count" }
if tx.items[0].installed != "pepper-20-1.x86_64" { err = "wrong installed" }
if tx.id != "4c1f0c7e" { err = "wrong id" }
`}))
	assert.NoError(t, manager.Execute(hooks.PreTransaction, testContext()))
}

func TestExecuteScriptAborts(t *testing.T) {
	manager := hooks.NewHookManager()
	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.PreTransaction, Content: `
tx := import("transaction")
err := ""
for item in tx.items {
	if item.op == "Erase" { err = "erasing " + item.erased + " is not allowed" }
}
`}))
	err := manager.Execute(hooks.PreTransaction, testContext())
	require.ErrorIs(t, err, errors.ErrHookScript)
	assert.Contains(t, err.Error(), "tour-5-0.noarch")
}

func TestExecuteRuntimeError(t *testing.T) {
	manager := hooks.NewHookManager()
	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.PostTransaction, Content: `x := 1 / 0`}))
	assert.ErrorIs(t, manager.Execute(hooks.PostTransaction, testContext()), errors.ErrHookExecution)
}

func TestExecuteWithoutHook(t *testing.T) {
	manager := hooks.NewHookManager()
	assert.NoError(t, manager.Execute(hooks.PostTransaction, testContext()))

	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.PostTransaction, Content: "// x"}))
	require.NoError(t, manager.RemoveHook(hooks.PostTransaction))
	assert.False(t, manager.HasHook(hooks.PostTransaction))
}

func TestLoadHooksFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre-transaction.tengo"), []byte(`// ok`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre-install.tengo"), []byte(`// ignored`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post-transaction.txt"), []byte(`// ignored`), 0o644))

	manager := hooks.NewHookManager()
	require.NoError(t, hooks.LoadHooksFromDir(manager, dir))
	assert.True(t, manager.HasHook(hooks.PreTransaction))
	assert.False(t, manager.HasHook(hooks.PostTransaction))

	assert.NoError(t, hooks.LoadHooksFromDir(manager, filepath.Join(dir, "missing")))
}

func TestHookTemplate(t *testing.T) {
	assert.Contains(t, hooks.HookTemplate(hooks.PreTransaction), "Pre-transaction hook")
	assert.Contains(t, hooks.HookTemplate(hooks.PostTransaction), "Post-transaction hook")
	assert.Contains(t, hooks.HookTemplate("x"), "Unknown hooks type")
}

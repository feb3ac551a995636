package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/gotx/pkg/errors"
)

// HookFileExtension is the extension of hook scripts.
const HookFileExtension = ".tengo"

// LoadHooksFromDir registers every <hook-type>.tengo script found in dir.
// A missing directory is not an error.
func LoadHooksFromDir(manager HookManager, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read hooks directory %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != HookFileExtension {
			continue
		}
		hookType := HookType(strings.TrimSuffix(entry.Name(), HookFileExtension))
		if !validType(hookType) {
			continue
		}

		hookPath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(hookPath)
		if err != nil {
			return errors.Wrapf(err, "error reading hooks file %s", hookPath)
		}
		if err := manager.AddHook(Hook{Type: hookType, Content: string(content)}); err != nil {
			return errors.Wrapf(err, "error adding hooks %s", hookType)
		}
	}
	return nil
}

// HookTemplate generates a template for a hooks script.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PreTransaction:
		return `// Pre-transaction hook
// Runs after the test transaction passed and before anything is applied.
// The builtin "transaction" module exposes:
// - id: string - transaction id
// - root_dir: string - installation root
// - items: array of {op, installed, erased, obsoleted}
// Set err to a non-empty string to abort the transaction.

/*
tx := import("transaction")
for item in tx.items {
    if item.op == "Erase" && item.erased == "glibc" {
        err = "refusing to erase glibc"
    }
}
*/`

	case PostTransaction:
		return `// Post-transaction hook
// Runs after the transaction was applied; failures are logged only.
// Available: the same "transaction" module plus return_code.

/*
fmt := import("fmt")
tx := import("transaction")
fmt.println(tx.id, " finished with ", tx.return_code)
*/`

	default:
		return "// Unknown hooks type: " + string(hookType)
	}
}

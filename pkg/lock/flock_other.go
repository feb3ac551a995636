//go:build !unix

package lock

import (
	"os"

	"github.com/glorpus-work/gotx/pkg/errors"
)

func tryLock(*os.File) (bool, error) {
	return false, &errors.UnsupportedOperationError{Reason: "file locking needs a unix system"}
}

func unlock(*os.File) error { return nil }

// Package signature checks detached OpenPGP signatures of downloaded
// packages against a directory of trusted public keys, and imports
// repository keys into it on request.
package signature

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
	"github.com/glorpus-work/gotx/pkg/model"
	"golang.org/x/crypto/openpgp"
	pgperrors "golang.org/x/crypto/openpgp/errors"
)

// SignatureSuffix is appended to a package path to find its detached signature.
const SignatureSuffix = ".asc"

// Status is the outcome of a signature check.
type Status int

const (
	StatusOK Status = iota
	// StatusUntrusted means the signature verifies against a repository key
	// that is not yet trusted.
	StatusUntrusted
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUntrusted:
		return "untrusted-key"
	default:
		return "fatal"
	}
}

// Result describes one checked package.
type Result struct {
	Status      Status
	KeyID       string
	Fingerprint string
	UserID      string
	// KeyPath is the repository key file holding the signing key when
	// Status is StatusUntrusted.
	KeyPath string
	Message string
}

// Keyring is a directory of trusted armored public keys plus per-repository
// candidate key files that may be imported.
type Keyring struct {
	dir        string
	candidates map[string][]string
}

// NewKeyring returns a keyring rooted at dir. candidates maps repository
// names to their configured gpgkey files.
func NewKeyring(dir string, candidates map[string][]string) *Keyring {
	if candidates == nil {
		candidates = make(map[string][]string)
	}
	return &Keyring{dir: dir, candidates: candidates}
}

// Trusted reads every key in the keyring directory.
func (k *Keyring) Trusted() (openpgp.EntityList, error) {
	entries, err := os.ReadDir(k.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read keyring %s", k.dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out openpgp.EntityList
	for _, n := range names {
		list, err := readKeyFile(filepath.Join(k.dir, n))
		if err != nil {
			logger.Warn("skipping unreadable key", logger.Fields{"file": n, "error": err.Error()})
			continue
		}
		out = append(out, list...)
	}
	return out, nil
}

func readKeyFile(path string) (openpgp.EntityList, error) {
	path = strings.TrimPrefix(path, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		// Fall back to binary keys.
		return openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	return list, nil
}

// Verify checks the detached signature stored next to path.
func (k *Keyring) Verify(pkg *model.Package, path string) Result {
	sig, err := os.ReadFile(path + SignatureSuffix)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Status: StatusFatal, Message: fmt.Sprintf("package %s is not signed", pkg.Ref())}
		}
		return Result{Status: StatusFatal, Message: err.Error()}
	}

	trusted, err := k.Trusted()
	if err != nil {
		return Result{Status: StatusFatal, Message: err.Error()}
	}
	signer, err := check(trusted, path, sig)
	switch {
	case err == nil:
		return describe(StatusOK, signer, "")
	case err != pgperrors.ErrUnknownIssuer:
		return Result{Status: StatusFatal, Message: fmt.Sprintf("bad signature on %s: %v", pkg.Ref(), err)}
	}

	for _, keyPath := range k.candidates[pkg.Repo] {
		list, err := readKeyFile(keyPath)
		if err != nil {
			logger.Warn("cannot read repository key", logger.Fields{"repo": pkg.Repo, "key": keyPath, "error": err.Error()})
			continue
		}
		if signer, err := check(list, path, sig); err == nil {
			return describe(StatusUntrusted, signer, keyPath)
		}
	}
	return Result{Status: StatusFatal, Message: fmt.Sprintf("public key for %s is not installed", pkg.Ref())}
}

func check(keys openpgp.EntityList, path string, sig []byte) (*openpgp.Entity, error) {
	if len(keys) == 0 {
		return nil, pgperrors.ErrUnknownIssuer
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return openpgp.CheckArmoredDetachedSignature(keys, f, bytes.NewReader(sig))
}

func describe(status Status, e *openpgp.Entity, keyPath string) Result {
	r := Result{Status: status, KeyPath: keyPath}
	if e == nil || e.PrimaryKey == nil {
		return r
	}
	r.KeyID = e.PrimaryKey.KeyIdString()
	r.Fingerprint = fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
	for name := range e.Identities {
		if r.UserID == "" || name < r.UserID {
			r.UserID = name
		}
	}
	return r
}

// Import copies the key file behind an untrusted result into the keyring.
func (k *Keyring) Import(res Result) error {
	if res.KeyPath == "" {
		return fmt.Errorf("%w: no key to import", errors.ErrSignature)
	}
	if err := os.MkdirAll(k.dir, fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "create keyring directory")
	}
	src, err := os.Open(strings.TrimPrefix(res.KeyPath, "file://"))
	if err != nil {
		return errors.Wrap(err, "open key")
	}
	defer func() { _ = src.Close() }()

	name := res.KeyID
	if name == "" {
		name = filepath.Base(res.KeyPath)
	}
	dst := filepath.Join(k.dir, name+".asc")
	tmp, err := os.CreateTemp(k.dir, "key-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create key file")
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "write key file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "close key file")
	}
	if err := os.Chmod(tmp.Name(), fsutil.FileModeDefault); err != nil {
		return errors.Wrap(err, "set key permissions")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return errors.Wrap(err, "install key file")
	}
	logger.Info("Imported GPG key", logger.Fields{"key_id": res.KeyID, "user_id": res.UserID})
	return nil
}

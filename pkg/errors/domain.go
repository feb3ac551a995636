package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Detailer is implemented by errors that carry a list of sub-problems.
type Detailer interface {
	Details() []string
}

// DownloadError aggregates per-package download failures.
type DownloadError struct {
	PerPackage map[string][]string
}

// NewDownloadError returns an empty DownloadError ready for Add.
func NewDownloadError() *DownloadError {
	return &DownloadError{PerPackage: make(map[string][]string)}
}

// Add records one failure reason for the named package.
func (e *DownloadError) Add(pkg string, reason string) {
	e.PerPackage[pkg] = append(e.PerPackage[pkg], reason)
}

// Empty reports whether no failure has been recorded.
func (e *DownloadError) Empty() bool {
	return e == nil || len(e.PerPackage) == 0
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s: %d package(s) could not be downloaded", ErrDownloadFailed, len(e.PerPackage))
}

// Is matches ErrDownloadFailed.
func (e *DownloadError) Is(target error) bool { return target == ErrDownloadFailed }

// Details lists "pkg: reason" lines sorted by package name.
func (e *DownloadError) Details() []string {
	names := make([]string, 0, len(e.PerPackage))
	for n := range e.PerPackage {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		for _, r := range e.PerPackage[n] {
			out = append(out, n+": "+r)
		}
	}
	return out
}

// SignatureKind distinguishes the two failing signature outcomes.
type SignatureKind int

const (
	// SignatureKeyUntrusted means the signing key is not in the keyring and was not imported.
	SignatureKeyUntrusted SignatureKind = iota + 1
	// SignatureFatal means the signature is bad or the package cannot be checked.
	SignatureFatal
)

// SignatureError reports a failed package signature check.
type SignatureError struct {
	Package string
	Kind    SignatureKind
	Message string
}

func (e *SignatureError) Error() string {
	if e.Kind == SignatureKeyUntrusted {
		return fmt.Sprintf("%s: %s: untrusted key: %s", ErrSignature, e.Package, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSignature, e.Package, e.Message)
}

// Is matches ErrSignature.
func (e *SignatureError) Is(target error) bool { return target == ErrSignature }

// RpmlibMismatchError means the installer itself is too old for some packages.
type RpmlibMismatchError struct {
	Problems []string
}

func (e *RpmlibMismatchError) Error() string {
	return fmt.Sprintf("%s to handle %d requirement(s)", ErrRpmlibMismatch, len(e.Problems))
}

// Is matches ErrRpmlibMismatch.
func (e *RpmlibMismatchError) Is(target error) bool { return target == ErrRpmlibMismatch }

// Details returns the unsatisfied tool requirements.
func (e *RpmlibMismatchError) Details() []string { return e.Problems }

// DependencyCheckError reports dependency or ordering problems found before the test run.
type DependencyCheckError struct {
	Problems []string
}

func (e *DependencyCheckError) Error() string {
	return fmt.Sprintf("%s: %d problem(s)", ErrDependencyCheck, len(e.Problems))
}

// Is matches ErrDependencyCheck.
func (e *DependencyCheckError) Is(target error) bool { return target == ErrDependencyCheck }

// Details returns the problems.
func (e *DependencyCheckError) Details() []string { return e.Problems }

// TestTransactionError reports the problems of a failed dry run.
type TestTransactionError struct {
	Problems []string
}

func (e *TestTransactionError) Error() string {
	return fmt.Sprintf("%s: %d problem(s)", ErrTestTransaction, len(e.Problems))
}

// Is matches ErrTestTransaction.
func (e *TestTransactionError) Is(target error) bool { return target == ErrTestTransaction }

// Details returns the problems.
func (e *TestTransactionError) Details() []string { return e.Problems }

// PackagesNotInstalledError names packages that had to be installed but are not.
type PackagesNotInstalledError struct {
	Specs []string
}

func (e *PackagesNotInstalledError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPackagesNotInstalled, strings.Join(e.Specs, ", "))
}

// Is matches ErrPackagesNotInstalled.
func (e *PackagesNotInstalledError) Is(target error) bool { return target == ErrPackagesNotInstalled }

// PackagesNotAvailableError names packages no repository can provide.
type PackagesNotAvailableError struct {
	Specs []string
}

func (e *PackagesNotAvailableError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPackagesNotAvailable, strings.Join(e.Specs, ", "))
}

// Is matches ErrPackagesNotAvailable.
func (e *PackagesNotAvailableError) Is(target error) bool { return target == ErrPackagesNotAvailable }

// IncompleteHistoryError names the history unit around which the package
// database was changed outside of recorded transactions.
type IncompleteHistoryError struct {
	UnitID int64
}

func (e *IncompleteHistoryError) Error() string {
	return fmt.Sprintf("%s: package database altered around transaction %d (use --force)", ErrIncompleteHistory, e.UnitID)
}

// Is matches ErrIncompleteHistory.
func (e *IncompleteHistoryError) Is(target error) bool { return target == ErrIncompleteHistory }

// UnsupportedOperationError is returned for operations the core refuses, such
// as installing a source package.
type UnsupportedOperationError struct {
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedOperation, e.Reason)
}

// Is matches ErrUnsupportedOperation.
func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupportedOperation }

// Details returns the sub-problems of err, or nil if it carries none.
func Details(err error) []string {
	var d Detailer
	if As(err, &d) {
		return d.Details()
	}
	return nil
}

// LockedError reports that another process holds the package database lock.
type LockedError struct {
	PID int
}

func (e *LockedError) Error() string {
	if e.PID <= 0 {
		return ErrLocked.Error()
	}
	return fmt.Sprintf("%s (pid %d)", ErrLocked, e.PID)
}

// Is matches ErrLocked.
func (e *LockedError) Is(target error) bool { return target == ErrLocked }

// Package errors defines the error taxonomy of the gotx transaction core.
// Sentinel values identify an error class and can be matched with errors.Is;
// the typed errors in domain.go carry the structured details a caller renders
// as an indented sub-list under the one-line critical message.
package errors

import "fmt"

// Config errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrInvalidLogLevel   = fmt.Errorf("invalid log level")
	ErrInvalidEmitter    = fmt.Errorf("invalid emitter")
	ErrNegativeDuration  = fmt.Errorf("duration cannot be negative")
)

// Repository and filesystem errors.
var (
	ErrEmptyRepositoryName = fmt.Errorf("repository name cannot be empty")
	ErrRepositoryURLEmpty  = fmt.Errorf("repository baseurl cannot be empty")
	ErrRepositoryExists    = fmt.Errorf("repository already exists")
	ErrRepositoryNotFound  = fmt.Errorf("repository not found")
	ErrIndexInvalid        = fmt.Errorf("invalid repository index")
	ErrInvalidPath         = fmt.Errorf("invalid path")
	ErrFileNotFound        = fmt.Errorf("file not found")
	ErrFileHashMismatch    = fmt.Errorf("file hash mismatch")
	ErrPackageInvalid      = fmt.Errorf("invalid package")
	ErrValidation          = fmt.Errorf("validation failed")
)

// Transaction and pipeline errors.
var (
	// ErrNothingToDo is informational: the transaction has no items.
	ErrNothingToDo           = fmt.Errorf("nothing to do")
	ErrConflictingItem       = fmt.Errorf("package is both installed and removed by the transaction")
	ErrDuplicateMember       = fmt.Errorf("transaction member already present")
	ErrOperationAborted      = fmt.Errorf("operation aborted")
	ErrInterrupted           = fmt.Errorf("interrupted by user")
	ErrConfirmationRequired  = fmt.Errorf("confirmation required but running non-interactively (use --assumeyes)")
	ErrLocked                = fmt.Errorf("package database is locked by another process")
	ErrSolver                = fmt.Errorf("dependency resolution failed")
	ErrNoMatch               = fmt.Errorf("no package matched")
	ErrInstallerNotSet       = fmt.Errorf("installer is not configured")
	ErrDownloadFailed        = fmt.Errorf("download failed")
	ErrSignature             = fmt.Errorf("package signature check failed")
	ErrRpmlibMismatch        = fmt.Errorf("package tool needs to be upgraded")
	ErrDependencyCheck       = fmt.Errorf("transaction check failed")
	ErrTestTransaction       = fmt.Errorf("test transaction failed")
	ErrPackagesNotInstalled  = fmt.Errorf("packages not installed")
	ErrPackagesNotAvailable  = fmt.Errorf("packages not available")
	ErrIncompleteHistory     = fmt.Errorf("history is incomplete")
	ErrUnsupportedOperation  = fmt.Errorf("unsupported operation")
	ErrHistoryUnitNotFound   = fmt.Errorf("history transaction not found")
	ErrTransactionIncomplete = fmt.Errorf("transaction finished with errors")
)

// Hook errors.
var (
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrEmptyRepositoryNameWithIndex reports a repository entry without a name.
func ErrEmptyRepositoryNameWithIndex(i int) error {
	return fmt.Errorf("repository %d: %w", i, ErrEmptyRepositoryName)
}

// ErrRepositoryURLEmptyWithName reports a repository entry without a baseurl.
func ErrRepositoryURLEmptyWithName(name string) error {
	return fmt.Errorf("repository '%s': %w", name, ErrRepositoryURLEmpty)
}

// ErrRepositoryExistsWithName reports a duplicate repository name.
func ErrRepositoryExistsWithName(name string) error {
	return fmt.Errorf("repository '%s': %w", name, ErrRepositoryExists)
}

// ErrInvalidLogLevelWithDetails reports an unknown log level.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidEmitterWithDetails reports an unknown emitter name.
func ErrInvalidEmitterWithDetails(name string) error {
	return fmt.Errorf("%w: '%s', must be one of: console, command, mail", ErrInvalidEmitter, name)
}

package cli

import (
	"fmt"
	"os"

	"github.com/glorpus-work/gotx/internal/logger"
	"github.com/glorpus-work/gotx/pkg/config"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/orchestrator"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
	AssumeYes  *bool
	AssumeNo   *bool
	NoWait     *bool
)

func flag(b *bool) bool {
	return b != nil && *b
}

// readConfig loads the configuration file as stored and configures the
// logger.
func readConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Settings.LogLevel
	if flag(Verbose) {
		level = "debug"
	}
	logger.InitLogger(level, logger.FormatText)
	return cfg, nil
}

// loadConfig loads the configuration and applies the global flags on top of
// it. The result must not be saved back.
func loadConfig() (*config.Config, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	if flag(AssumeYes) {
		cfg.Settings.AssumeYes = true
	}
	if flag(AssumeNo) {
		cfg.Settings.AssumeNo = true
	}
	if flag(NoWait) {
		cfg.Settings.LockFailFast = true
	}
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes LoadConfig fail with a descriptive error.
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// ExitCode maps the error returned by a command to the process exit status:
// 2 when the transaction waits for a confirmation nobody could give, 1 for
// any other error.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return orchestrator.CodeSuccess
	case errors.Is(err, errors.ErrConfirmationRequired):
		return orchestrator.CodePending
	default:
		return orchestrator.CodeFatal
	}
}

// PrintError writes err to stderr, followed by its sub-problems when it
// carries any.
func PrintError(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var d errors.Detailer
	if errors.As(err, &d) {
		for _, line := range d.Details() {
			_, _ = fmt.Fprintf(os.Stderr, "  %s\n", line)
		}
	}
}

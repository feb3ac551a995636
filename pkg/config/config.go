// Package config loads, validates and saves the gotx configuration: directory
// layout, transaction behaviour, repositories and result emitters. Files ending
// in .toml are read as TOML, everything else as YAML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/gotx/pkg/emitter"
	"github.com/glorpus-work/gotx/pkg/errors"
	"github.com/glorpus-work/gotx/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	Repositories []*RepositoryConfig `yaml:"repositories" toml:"repositories"`
	Settings     Settings            `yaml:"settings" toml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// RootDir is the filesystem tree packages are installed into.
	RootDir    string `yaml:"root_dir,omitempty" toml:"root_dir,omitempty"`
	StateDir   string `yaml:"state_dir,omitempty" toml:"state_dir,omitempty"`
	CacheDir   string `yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty"`
	KeyringDir string `yaml:"keyring_dir,omitempty" toml:"keyring_dir,omitempty"`
	HooksDir   string `yaml:"hooks_dir,omitempty" toml:"hooks_dir,omitempty"`
	Arch       string `yaml:"arch,omitempty" toml:"arch,omitempty"`

	AssumeYes bool `yaml:"assume_yes" toml:"assume_yes"`
	AssumeNo  bool `yaml:"assume_no" toml:"assume_no"`
	KeepCache bool `yaml:"keepcache" toml:"keepcache"`
	// GPGCheck defaults to true when unset.
	GPGCheck *bool `yaml:"gpgcheck,omitempty" toml:"gpgcheck,omitempty"`

	InstallOnlyPkgs       []string `yaml:"installonly_pkgs,omitempty" toml:"installonly_pkgs,omitempty"`
	HistoryRecordPackages []string `yaml:"history_record_packages,omitempty" toml:"history_record_packages,omitempty"`

	LockFailFast bool     `yaml:"lock_fail_fast" toml:"lock_fail_fast"`
	LockPoll     Duration `yaml:"lock_poll" toml:"lock_poll"`

	DownloadConcurrency int      `yaml:"download_concurrency" toml:"download_concurrency"`
	HTTPTimeout         Duration `yaml:"http_timeout" toml:"http_timeout"`
	MetadataExpire      Duration `yaml:"metadata_expire" toml:"metadata_expire"`

	LogLevel string `yaml:"log_level" toml:"log_level"` // debug, info, warn, error

	Emitters        []string             `yaml:"emitters,omitempty" toml:"emitters,omitempty"`
	EmitterCommand  []string             `yaml:"emitter_command,omitempty" toml:"emitter_command,omitempty"`
	Mail            emitter.MailSettings `yaml:"mail,omitempty" toml:"mail,omitempty"`
	MetricsTextfile string               `yaml:"metrics_textfile,omitempty" toml:"metrics_textfile,omitempty"`
}

// Default configuration values.
const (
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultLockPoll            = 2 * time.Second
	DefaultMetadataExpire      = 48 * time.Hour
	DefaultDownloadConcurrency = 4

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultHistoryRecordPackages are always recorded as user-installed.
var DefaultHistoryRecordPackages = []string{"gotx"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	configDir := dirOr(fsutil.GetConfigDir, ".")
	stateDir := dirOr(fsutil.GetStateDir, filepath.Join(os.TempDir(), fsutil.AppName))
	cacheDir := dirOr(fsutil.GetCacheDir, filepath.Join(os.TempDir(), fsutil.AppName, "cache"))

	rootDir := "/"
	if runtime.GOOS == "windows" || os.Geteuid() != 0 {
		rootDir = filepath.Join(stateDir, "root")
	}

	gpgCheck := true
	return &Config{
		Repositories: []*RepositoryConfig{},
		Settings: Settings{
			RootDir:               rootDir,
			StateDir:              stateDir,
			CacheDir:              cacheDir,
			KeyringDir:            filepath.Join(configDir, "keys"),
			HooksDir:              filepath.Join(configDir, "hooks"),
			Arch:                  defaultArch(),
			GPGCheck:              &gpgCheck,
			HistoryRecordPackages: append([]string(nil), DefaultHistoryRecordPackages...),
			LockPoll:              Duration(DefaultLockPoll),
			DownloadConcurrency:   DefaultDownloadConcurrency,
			HTTPTimeout:           Duration(DefaultHTTPTimeout),
			MetadataExpire:        Duration(DefaultMetadataExpire),
			LogLevel:              "info",
			Emitters:              []string{emitter.NameConsole},
		},
	}
}

func dirOr(fn func() (string, error), fallback string) string {
	dir, err := fn()
	if err != nil {
		return fallback
	}
	return dir
}

// defaultArch maps GOARCH to the package architecture naming.
func defaultArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "i686"
	default:
		return runtime.GOARCH
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file, formatOf(absPath))
}

// Format is the encoding of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// LoadConfigFromReader loads configuration encoded as format from reader.
func LoadConfigFromReader(reader io.Reader, format Format) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &config)
	default:
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	return &config, nil
}

// Marshal encodes the configuration as format.
func (c *Config) Marshal(format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatTOML:
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(c); err != nil {
			return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
		}
	default:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(YAMLIndent)
		if err := enc.Encode(c); err != nil {
			return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
		}
		_ = enc.Close()
	}
	return buf.Bytes(), nil
}

// SaveConfig atomically writes the configuration to path, encoded according
// to its extension.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	data, err := c.Marshal(formatOf(absPath))
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(absPath, data, fsutil.FileModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateRepositories(c.Repositories); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateRepositories(repos []*RepositoryConfig) error {
	seen := make(map[string]bool)
	for i, repo := range repos {
		if repo.Name == "" {
			return errors.ErrEmptyRepositoryNameWithIndex(i)
		}
		if repo.BaseURL == "" {
			return errors.ErrRepositoryURLEmptyWithName(repo.Name)
		}
		if seen[repo.Name] {
			return errors.ErrRepositoryExistsWithName(repo.Name)
		}
		seen[repo.Name] = true
		if err := repo.Auth.validate(); err != nil {
			return fmt.Errorf("repository '%s': %w", repo.Name, err)
		}
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}
	if s.LockPoll < 0 {
		return fmt.Errorf("lock_poll cannot be negative")
	}
	if s.DownloadConcurrency < 1 {
		return fmt.Errorf("download_concurrency must be at least 1")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	for _, name := range s.Emitters {
		switch name {
		case emitter.NameConsole, emitter.NameMail:
		case emitter.NameCommand:
			if len(s.EmitterCommand) == 0 {
				return fmt.Errorf("emitter_command is required by the command emitter")
			}
		default:
			return errors.ErrInvalidEmitterWithDetails(name)
		}
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "gotx.yaml"), nil
}

// GetDatabasePath returns the path to the installed packages database.
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.Settings.StateDir, "installed.json")
}

// GetHistoryPath returns the path to the transaction history database.
func (c *Config) GetHistoryPath() string {
	return filepath.Join(c.Settings.StateDir, "history.sqlite")
}

// GetLockPath returns the path of the process lock file.
func (c *Config) GetLockPath() string {
	return filepath.Join(c.Settings.StateDir, "gotx.pid")
}

// GetIndexDir returns the path to the repository index cache directory.
func (c *Config) GetIndexDir() string {
	return filepath.Join(c.Settings.CacheDir, "repos")
}

// GetPackageCacheDir returns the path to the downloaded package cache.
func (c *Config) GetPackageCacheDir() string {
	return filepath.Join(c.Settings.CacheDir, "packages")
}

// GPGCheckEnabled reports whether package signatures are verified.
func (c *Config) GPGCheckEnabled() bool {
	return c.Settings.GPGCheck == nil || *c.Settings.GPGCheck
}

// EmitterSettings returns the settings of the configured emitters.
func (c *Config) EmitterSettings(out io.Writer, noColor bool) emitter.Settings {
	return emitter.Settings{
		Names:   c.Settings.Emitters,
		Command: c.Settings.EmitterCommand,
		Mail:    c.Settings.Mail,
		Out:     out,
		NoColor: noColor,
	}
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	s := &c.Settings

	setString := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	setString(&s.RootDir, defaults.Settings.RootDir)
	setString(&s.StateDir, defaults.Settings.StateDir)
	setString(&s.CacheDir, defaults.Settings.CacheDir)
	setString(&s.KeyringDir, defaults.Settings.KeyringDir)
	setString(&s.HooksDir, defaults.Settings.HooksDir)
	setString(&s.Arch, defaults.Settings.Arch)
	setString(&s.LogLevel, defaults.Settings.LogLevel)

	if s.GPGCheck == nil {
		s.GPGCheck = defaults.Settings.GPGCheck
	}
	if s.HistoryRecordPackages == nil {
		s.HistoryRecordPackages = defaults.Settings.HistoryRecordPackages
	}
	if s.LockPoll == 0 {
		s.LockPoll = defaults.Settings.LockPoll
	}
	if s.DownloadConcurrency == 0 {
		s.DownloadConcurrency = defaults.Settings.DownloadConcurrency
	}
	if s.HTTPTimeout == 0 {
		s.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if s.MetadataExpire == 0 {
		s.MetadataExpire = defaults.Settings.MetadataExpire
	}
	if s.Emitters == nil {
		s.Emitters = defaults.Settings.Emitters
	}
}

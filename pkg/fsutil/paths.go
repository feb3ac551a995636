package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/glorpus-work/gotx/pkg/platform"
)

const (
	// AppName is the name of the application used in paths
	AppName = "gotx"
)

// System-wide locations, used when running as root.
const (
	SystemConfigDir = "/etc/gotx"
	SystemCacheDir  = "/var/cache/gotx"
	SystemStateDir  = "/var/lib/gotx"
)

var geteuid = os.Geteuid

func systemWide() bool {
	return runtime.GOOS != platform.OSWindows && geteuid() == 0
}

// GetConfigDir returns the directory holding gotx.yaml, keys and hooks.
// On Linux as root: /etc/gotx; otherwise ~/.config/gotx.
func GetConfigDir() (string, error) {
	if systemWide() {
		return SystemConfigDir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// GetCacheDir returns the platform-specific cache directory for the application
// On Linux as root: /var/cache/gotx
// On Linux: ~/.cache/gotx/
// On macOS: ~/Library/Caches/gotx/
func GetCacheDir() (string, error) {
	if systemWide() {
		return SystemCacheDir, nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// getAppDataDir returns the platform-specific base data directory
// On Linux: ~/.local/share
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func getAppDataDir() (string, error) {
	switch runtime.GOOS {
	case platform.OSWindows:
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", errors.New("LOCALAPPDATA environment variable not set")
		}
		return localAppData, nil

	case platform.OSDarwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil

	default: // Linux, BSD, etc.
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return xdgDataHome, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share"), nil
	}
}

// GetStateDir returns the directory of the installed package database, the
// history database and the lock file.
// On Linux as root: /var/lib/gotx; otherwise ~/.local/share/gotx.
func GetStateDir() (string, error) {
	if systemWide() {
		return SystemStateDir, nil
	}
	baseDir, err := getAppDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, AppName), nil
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appDirName = "khata"

// Config file name.
const configFileName = "config.toml"

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/khata).
// On macOS, uses ~/Library/Application Support/khata per Apple guidelines.
// Other platforms fall back to ~/.config/khata.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName)
		}

		return filepath.Join(home, ".config", appDirName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default:
		return filepath.Join(home, ".config", appDirName)
	}
}

// DefaultDataDir returns the platform-specific directory for application
// data (the state database).
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/khata).
// On macOS, uses ~/Library/Application Support/khata (macOS convention
// collapses config and data into one directory).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appDirName)
		}

		return filepath.Join(home, ".local", "share", appDirName)
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appDirName)
	default:
		return filepath.Join(home, ".local", "share", appDirName)
	}
}

// DefaultConfigPath returns the full path to the default config file.
// This is the fallback when neither KHATA_CONFIG nor --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// StatePath returns the path of the SQLite state database inside dataDir.
func StatePath(dataDir string) string {
	return filepath.Join(dataDir, "state.db")
}

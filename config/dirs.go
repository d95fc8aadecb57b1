// ABOUTME: XDG-based data and config directory resolution for modelselector.
// ABOUTME: Checks XDG_DATA_HOME / XDG_CONFIG_HOME, falls back to ~/.local/share/modelselector and ~/.config/modelselector.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppName names the per-user directories and the config file.
const AppName = "modelselector"

// DefaultDataDir returns the directory for log files and other local state.
// It checks XDG_DATA_HOME first, then falls back to ~/.local/share/modelselector.
func DefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", AppName), nil
}

// DefaultConfigDir returns the directory searched for modelselector.yaml.
// It checks XDG_CONFIG_HOME first, then falls back to ~/.config/modelselector.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".config", AppName), nil
}

// DefaultLogFile is where the TUI writes its log when none is configured.
func DefaultLogFile() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName+".log"), nil
}

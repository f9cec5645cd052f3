// Package config handles the XDG configuration directory, file paths and
// the optional config.json settings file.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// AppName is the application directory name.
	AppName = "uptime"

	// SettingsFile is the optional JSONC settings filename.
	SettingsFile = "config.json"

	// TokenFile is the stored credential filename.
	TokenFile = "token.json"

	// StateDir holds locally cached inputs and history.
	StateDir = "state"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// APIURL is the backend base URL.
	APIURL string

	// APITimeout bounds each backend request.
	APITimeout time.Duration

	// AutosaveInterval is the period between session snapshots.
	AutosaveInterval time.Duration

	// HistoryDays is the default history window.
	HistoryDays int
}

// New creates a new Config with the default or specified config directory
// and loads settings from config.json and the environment.
// If configDir is empty, uses XDG_CONFIG_HOME/uptime or $HOME/.config/uptime.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	c := &Config{Dir: dir}
	if err := c.loadSettings(); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.json.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored credential file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// StatePath returns the local state directory.
func (c *Config) StatePath() string {
	return filepath.Join(c.Dir, StateDir)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

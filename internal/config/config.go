// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultKeybinding  = "m"
	DefaultRescanDelay = "500ms"
)

// Config represents the traybadge configuration.
// Loaded from ~/.config/traybadge/config.toml
type Config struct {
	Behavior   BehaviorConfig   `toml:"behavior"`
	Menu       MenuConfig       `toml:"menu"`
	Strategies []StrategyConfig `toml:"strategies"`
}

// MenuConfig holds settings for the terminal menu.
type MenuConfig struct {
	Keybinding string `toml:"keybinding"` // Key that opens/closes the menu
}

// StrategyConfig registers an extra grouping strategy.
type StrategyConfig struct {
	Key         string `toml:"key"`          // Desktop entry or application name
	Kind        string `toml:"kind"`         // generic, burst, visible-count, hidden-count, ignore
	StripSuffix string `toml:"strip_suffix"` // Optional title suffix to remove before grouping
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Behavior: BehaviorConfig{
			Mode:            string(ModeServer),
			Verbose:         false,
			AlwaysShowBadge: false,
			RescanDelay:     defaultRescanDelay,
		},
		Menu: MenuConfig{
			Keybinding: DefaultKeybinding,
		},
		Strategies: nil,
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "traybadge", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "traybadge")
}

// RuntimePath returns the directory for volatile state.
// Uses XDG_RUNTIME_DIR if set, otherwise the data directory.
func RuntimePath() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "traybadge")
	}
	return DataPath()
}

// SnapshotPath returns the path to the published snapshot file.
func SnapshotPath() string {
	return filepath.Join(RuntimePath(), "snapshot.json")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Behavior.Validate(); err != nil {
		return err
	}

	if c.Menu.Keybinding == "" {
		return errors.New("menu keybinding cannot be empty")
	}

	for i, s := range c.Strategies {
		if s.Key == "" {
			return fmt.Errorf("strategies[%d]: key cannot be empty", i)
		}
		if _, err := s.strategy(); err != nil {
			return fmt.Errorf("strategies[%d] (%s): %w", i, s.Key, err)
		}
	}

	return nil
}

// EnsureRuntimeDir creates the runtime directory if it doesn't exist.
func EnsureRuntimeDir() error {
	path := RuntimePath()
	if path == "" {
		return errors.New("unable to determine runtime directory")
	}
	return os.MkdirAll(path, 0700)
}

package config

import (
	"fmt"
	"strconv"
	"time"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "2s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Try parsing as integer (milliseconds)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '2s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

const defaultRescanDelay = Duration(500 * time.Millisecond)

// Mode selects how traybadged attaches to the notification bus.
type Mode string

const (
	// ModeServer owns org.freedesktop.Notifications.
	ModeServer Mode = "server"
	// ModeMonitor passively observes another notification daemon.
	ModeMonitor Mode = "monitor"
)

// ValidModes returns all valid mode values.
func ValidModes() []Mode {
	return []Mode{ModeServer, ModeMonitor}
}

// BehaviorConfig contains daemon behavior settings.
type BehaviorConfig struct {
	Mode            string   `toml:"mode"`              // "server" or "monitor"
	Verbose         bool     `toml:"verbose"`           // Debug logging
	AlwaysShowBadge bool     `toml:"always_show_badge"` // Show the badge even when the total is zero
	RescanDelay     Duration `toml:"rescan_delay"`      // Delay of the rescan after an item is activated
}

// Validate checks the behavior settings.
func (b *BehaviorConfig) Validate() error {
	validMode := false
	for _, m := range ValidModes() {
		if b.Mode == string(m) {
			validMode = true
			break
		}
	}
	if !validMode {
		return fmt.Errorf("invalid mode %q, must be one of: %v", b.Mode, ValidModes())
	}

	if b.RescanDelay < 0 {
		return fmt.Errorf("rescan_delay cannot be negative, got %s", b.RescanDelay.Duration())
	}

	return nil
}

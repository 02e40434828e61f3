package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment toggles. They override the config file.
const (
	EnvVerbose    = "TRAYBADGE_VERBOSE"
	EnvAlwaysShow = "TRAYBADGE_ALWAYS_SHOW"
)

// envOverrides holds the toggles found in the environment. Unset or empty
// variables stay nil.
type envOverrides struct {
	Verbose    *bool `env:"TRAYBADGE_VERBOSE"`
	AlwaysShow *bool `env:"TRAYBADGE_ALWAYS_SHOW"`
}

// ApplyEnv overlays the environment toggles from the process environment.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	c.apply(o)
	return nil
}

// ApplyEnvFrom overlays the environment toggles found in environ.
func (c *Config) ApplyEnvFrom(environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	c.apply(o)
	return nil
}

func (c *Config) apply(o envOverrides) {
	if o.Verbose != nil {
		c.Behavior.Verbose = *o.Verbose
	}
	if o.AlwaysShow != nil {
		c.Behavior.AlwaysShowBadge = *o.AlwaysShow
	}
}

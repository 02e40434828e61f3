package config

import (
	"fmt"

	"github.com/jmylchreest/traybadge/internal/core"
)

func (s StrategyConfig) strategy() (core.Strategy, error) {
	kind, err := core.ParseStrategyKind(s.Kind)
	if err != nil {
		return core.Strategy{}, err
	}
	strategy := core.Strategy{Kind: kind}
	if s.StripSuffix != "" {
		strategy.Filter = core.StripSuffix(s.StripSuffix)
	}
	return strategy, nil
}

// BuildRegistry returns the default registry extended with the configured
// strategies. Configured keys replace built-in ones.
func (c *Config) BuildRegistry() (*core.Registry, error) {
	registry := core.DefaultRegistry()
	for _, s := range c.Strategies {
		strategy, err := s.strategy()
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", s.Key, err)
		}
		if err := registry.Register(s.Key, strategy); err != nil {
			return nil, fmt.Errorf("strategy %q: %w", s.Key, err)
		}
	}
	return registry, nil
}

// Package core provides the classification, grouping and aggregation engine
// that turns tray sources into a badge total and a grouped item list.
package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Reserved classification keys.
const (
	// ChatKey classifies every chat-capable source. Application identities
	// never start with '@', so it cannot collide with one.
	ChatKey = "@chat"
	// BurstKey is the title carried by fire-and-forget notify-send sources.
	BurstKey = "notify-send"
)

// StrategyKind selects how a classified source is turned into items.
type StrategyKind int

const (
	// StrategyIgnore is the explicit "no strategy" variant.
	StrategyIgnore StrategyKind = iota
	// StrategyGeneric emits one item per source with the source's count.
	StrategyGeneric
	// StrategyNotifySendBurst routes entries to the burst coalescer.
	StrategyNotifySendBurst
	// StrategyGroupVisibleCount splits entries by title and shows counts.
	StrategyGroupVisibleCount
	// StrategyGroupHiddenCount splits entries by title and hides counts.
	StrategyGroupHiddenCount
)

var strategyNames = map[StrategyKind]string{
	StrategyIgnore:            "ignore",
	StrategyGeneric:           "generic",
	StrategyNotifySendBurst:   "burst",
	StrategyGroupVisibleCount: "visible-count",
	StrategyGroupHiddenCount:  "hidden-count",
}

// String returns the configuration name of the kind.
func (k StrategyKind) String() string {
	if name, ok := strategyNames[k]; ok {
		return name
	}
	return "unknown"
}

// ErrUnknownStrategy is returned when a strategy name cannot be parsed.
var ErrUnknownStrategy = errors.New("unknown strategy kind")

// ErrEmptyKey is returned when registering a strategy without a key.
var ErrEmptyKey = errors.New("classification key cannot be empty")

// ParseStrategyKind parses a configuration strategy name.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return StrategyGeneric, nil
	case "burst", "notify-send":
		return StrategyNotifySendBurst, nil
	case "visible-count", "visible":
		return StrategyGroupVisibleCount, nil
	case "hidden-count", "hidden":
		return StrategyGroupHiddenCount, nil
	case "ignore", "none":
		return StrategyIgnore, nil
	default:
		return StrategyIgnore, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// TitleFilter is a pure, idempotent title transform.
type TitleFilter func(string) string

// StripSuffix returns a filter removing a trailing suffix (repeatedly) and
// surrounding whitespace, so that applying it twice changes nothing.
func StripSuffix(suffix string) TitleFilter {
	suffix = strings.TrimRightFunc(suffix, unicode.IsSpace)
	return func(title string) string {
		t := strings.TrimSpace(title)
		if suffix == "" {
			return t
		}
		for strings.HasSuffix(t, suffix) {
			t = strings.TrimSpace(strings.TrimSuffix(t, suffix))
		}
		return t
	}
}

// NormalizeTitle is the default title transform. It leaves titles as they
// are, so titles differing only in whitespace stay separate.
func NormalizeTitle(title string) string {
	return title
}

// Strategy is a registered grouping strategy.
type Strategy struct {
	Kind   StrategyKind
	Filter TitleFilter
}

// Normalize applies the strategy's title filter, or NormalizeTitle if none.
func (s Strategy) Normalize(title string) string {
	if s.Filter == nil {
		return NormalizeTitle(title)
	}
	return s.Filter(title)
}

// Groups reports whether the strategy splits a source's entries by title.
func (s Strategy) Groups() bool {
	return s.Kind == StrategyGroupVisibleCount || s.Kind == StrategyGroupHiddenCount
}

// Registry maps classification keys to strategies.
// It is built once at activation and only read during passes.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry holding the chat and burst keys plus
// the built-in application strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(ChatKey, Strategy{Kind: StrategyGeneric})
	r.mustRegister(BurstKey, Strategy{Kind: StrategyNotifySendBurst})
	r.mustRegister("org.gnome.Evolution", Strategy{Kind: StrategyGroupVisibleCount})
	r.mustRegister("thunderbird", Strategy{Kind: StrategyGeneric})
	r.mustRegister("pidgin", Strategy{Kind: StrategyGroupHiddenCount, Filter: StripSuffix(" says:")})
	return r
}

// Register adds or replaces the strategy for key.
func (r *Registry) Register(key string, s Strategy) error {
	if key == "" {
		return ErrEmptyKey
	}
	r.strategies[key] = s
	return nil
}

func (r *Registry) mustRegister(key string, s Strategy) {
	if err := r.Register(key, s); err != nil {
		panic(err)
	}
}

// Lookup returns the strategy for key. Unregistered keys resolve to the
// StrategyIgnore variant.
func (r *Registry) Lookup(key string) Strategy {
	if s, ok := r.strategies[key]; ok {
		return s
	}
	return Strategy{Kind: StrategyIgnore}
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	return len(r.strategies)
}

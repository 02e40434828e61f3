package core

import (
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/jmylchreest/traybadge/internal/model"
)

// PassState is the lifecycle state of an Aggregator.
type PassState int32

const (
	PassIdle PassState = iota
	PassScanning
	PassFinalizing
)

// String returns the state name.
func (s PassState) String() string {
	switch s {
	case PassIdle:
		return "idle"
	case PassScanning:
		return "scanning"
	case PassFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Aggregator runs aggregation passes over tray sources.
// Passes must not overlap; the caller serialises Run.
type Aggregator struct {
	registry *Registry
	logger   *slog.Logger

	state atomic.Int32
	burst BurstCoalescer
}

// NewAggregator creates an Aggregator using the given registry.
func NewAggregator(registry *Registry, logger *slog.Logger) *Aggregator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		registry: registry,
		logger:   logger,
	}
}

// Compute runs a single pass with a throwaway aggregator and no logging.
func Compute(registry *Registry, sources []model.TraySource) model.AggregationResult {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAggregator(registry, quiet).Run(sources)
}

// State returns the current pass state.
func (a *Aggregator) State() PassState {
	return PassState(a.state.Load())
}

// Run performs one full pass: every source is classified and dispatched in
// order, then the burst coalescer is drained. Total is the number of items.
func (a *Aggregator) Run(sources []model.TraySource) model.AggregationResult {
	a.state.Store(int32(PassScanning))
	defer a.state.Store(int32(PassIdle))

	a.burst.Start()
	var items []model.GroupedItem

	for i := range sources {
		src := &sources[i]

		key, ok := Classify(src)
		if !ok {
			a.logger.Debug("skipping unclassified source",
				"identifier", src.Identifier,
				"title", src.Title,
				"raw_count", src.RawCount)
			continue
		}

		strategy := a.registry.Lookup(key)
		switch strategy.Kind {
		case StrategyGeneric:
			count, _ := src.Count()
			items = append(items, model.GroupedItem{
				Title:        src.Title,
				DisplayCount: count,
				Action:       src.Open,
			})
		case StrategyGroupVisibleCount, StrategyGroupHiddenCount:
			items = append(items, GroupEntries(src, strategy)...)
		case StrategyNotifySendBurst:
			a.burst.Accept(src.Entries, strategy.Filter)
		default:
			a.logger.Debug("no strategy for source", "key", key, "title", src.Title)
		}
	}

	a.state.Store(int32(PassFinalizing))
	items = append(items, a.burst.Finish()...)

	a.logger.Debug("aggregation pass complete", "sources", len(sources), "items", len(items))

	return model.AggregationResult{
		Total: len(items),
		Items: items,
	}
}

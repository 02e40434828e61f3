package tray

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/traybadge/internal/core"
	"github.com/jmylchreest/traybadge/internal/model"
)

// DefaultRescanDelay is the delay of the rescan scheduled after an item is activated.
const DefaultRescanDelay = 500 * time.Millisecond

// Errors returned by Context.
var (
	ErrClosed          = errors.New("tray context is closed")
	ErrStaleSnapshot   = errors.New("snapshot is no longer current")
	ErrItemNotFound    = errors.New("item not found")
	ErrRecomputeFailed = errors.New("aggregation pass failed")
)

// Publisher receives every snapshot produced by a pass.
type Publisher interface {
	Publish(snap *model.Snapshot) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(snap *model.Snapshot) error

// Publish calls f(snap).
func (f PublisherFunc) Publish(snap *model.Snapshot) error {
	return f(snap)
}

// Options configures a Context.
type Options struct {
	Registry        *core.Registry
	AlwaysShowBadge bool
	RescanDelay     time.Duration // 0 uses DefaultRescanDelay
	Publishers      []Publisher
	Logger          *slog.Logger
}

// Context is the live attachment of the aggregator to a tray. It is created
// on activation and closed on deactivation; nothing outlives it.
type Context struct {
	mu         sync.Mutex
	tray       *Tray
	aggregator *core.Aggregator
	logger     *slog.Logger

	alwaysShow  bool
	rescanDelay time.Duration
	publishers  []Publisher

	result   model.AggregationResult
	snapshot *model.Snapshot

	detach  func()
	closed  atomic.Bool
	passes  atomic.Int64
	rescans atomic.Int64
}

// Activate attaches a new Context to tray, runs the first pass and
// recomputes on every subsequent tray change.
func Activate(tray *Tray, opts Options) *Context {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.RescanDelay
	if delay <= 0 {
		delay = DefaultRescanDelay
	}

	c := &Context{
		tray:        tray,
		aggregator:  core.NewAggregator(opts.Registry, logger),
		logger:      logger,
		alwaysShow:  opts.AlwaysShowBadge,
		rescanDelay: delay,
		publishers:  opts.Publishers,
		snapshot:    model.EmptySnapshot(),
	}

	c.detach = tray.OnChange(c.trigger)

	if _, err := c.Recompute(); err != nil {
		logger.Warn("initial aggregation pass failed", "error", err)
	}

	return c
}

// trigger is the tray change hook. Failures stay here.
func (c *Context) trigger() {
	if _, err := c.Recompute(); err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Warn("recompute after tray change failed", "error", err)
	}
}

// Recompute runs one aggregation pass over every current source and
// publishes the result. Passes are serialised. A panic inside the pass is
// recovered and reported as ErrRecomputeFailed; the previous snapshot stays.
func (c *Context) Recompute() (snap *model.Snapshot, err error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Close may have run while this pass waited for the lock.
	if c.closed.Load() {
		return nil, ErrClosed
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("recovered from fault during aggregation pass", "panic", r)
			snap = nil
			err = fmt.Errorf("%w: %v", ErrRecomputeFailed, r)
		}
	}()

	result := c.aggregator.Run(c.tray.Sources())
	c.passes.Add(1)

	snap, err = model.NewSnapshot(result, c.alwaysShow)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}
	c.result = result
	c.snapshot = snap

	for _, p := range c.publishers {
		if perr := p.Publish(snap); perr != nil {
			c.logger.Warn("failed to publish snapshot", "id", snap.ID, "error", perr)
		}
	}

	c.logger.Debug("badge recomputed", "id", snap.ID, "total", snap.Total, "show_badge", snap.ShowBadge)
	return snap, nil
}

// Snapshot returns the latest published snapshot.
func (c *Context) Snapshot() *model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Passes returns the number of completed passes.
func (c *Context) Passes() int64 {
	return c.passes.Load()
}

// ActivateItem runs the action of the item at 1-based index in the snapshot
// identified by snapshotID (empty means the current one), then schedules a
// delayed rescan.
func (c *Context) ActivateItem(snapshotID string, index int) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.mu.Lock()
	if snapshotID != "" && snapshotID != c.snapshot.ID {
		c.mu.Unlock()
		return ErrStaleSnapshot
	}
	item := core.LookupByIndex(c.result.Items, index)
	if item == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: index %d", ErrItemNotFound, index)
	}
	activated := *item
	c.mu.Unlock()

	// The action usually changes the tray, which recomputes through the
	// change hook, so it must run without holding the lock.
	err := c.runAction(activated)
	c.scheduleRescan()
	return err
}

func (c *Context) runAction(item model.GroupedItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("recovered from fault in item action", "title", item.Title, "panic", r)
			err = fmt.Errorf("item %q action failed: %v", item.Title, r)
		}
	}()
	c.logger.Debug("activating item", "title", item.Title, "display_count", item.DisplayCount)
	item.Activate()
	return nil
}

// scheduleRescan reruns the aggregation shortly after an activation.
// Heuristic: the bus does not always report a count change once the
// activated application has acted. The timer is never cancelled; a rerun
// on unchanged input yields the same result.
func (c *Context) scheduleRescan() {
	time.AfterFunc(c.rescanDelay, func() {
		if c.closed.Load() {
			return
		}
		c.rescans.Add(1)
		c.trigger()
	})
}

// Rescans returns how many delayed rescans have fired.
func (c *Context) Rescans() int64 {
	return c.rescans.Load()
}

// Close detaches the context from the tray. Pending rescans become no-ops
// and no snapshot is published once Close has returned.
func (c *Context) Close() {
	if c.closed.Swap(true) {
		return
	}
	if c.detach != nil {
		c.detach()
	}
	// Wait out a pass already in progress so nothing is published after Close returns.
	c.mu.Lock()
	c.mu.Unlock()
	c.logger.Debug("tray context closed")
}

package tray

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/traybadge/internal/core"
	"github.com/jmylchreest/traybadge/internal/model"
)

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []*model.Snapshot
}

func (p *recordingPublisher) Publish(snap *model.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return nil
}

func (p *recordingPublisher) last() *model.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snaps) == 0 {
		return nil
	}
	return p.snaps[len(p.snaps)-1]
}

func activate(t *testing.T, tr *Tray, opts Options) *Context {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	c := Activate(tr, opts)
	t.Cleanup(c.Close)
	return c
}

func TestContext_InitialPass(t *testing.T) {
	pub := &recordingPublisher{}
	c := activate(t, New(nil, testLogger()), Options{Publishers: []Publisher{pub}})

	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.Total)
	assert.False(t, snap.ShowBadge)
	assert.Equal(t, int64(1), c.Passes())
	assert.Equal(t, snap, pub.last())
}

func TestContext_AlwaysShowBadge(t *testing.T) {
	c := activate(t, New(nil, testLogger()), Options{AlwaysShowBadge: true})
	assert.True(t, c.Snapshot().ShowBadge)
}

func TestContext_RecomputesOnChange(t *testing.T) {
	tr := New(nil, testLogger())
	pub := &recordingPublisher{}
	c := activate(t, tr, Options{Registry: core.DefaultRegistry(), Publishers: []Publisher{pub}})

	tr.Add(chat(1, "Empathy", "Alice"))
	tr.Add(note(2, core.BurstKey, "Reminder"))
	tr.Add(note(3, core.BurstKey, "Reminder"))

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Total)
	assert.True(t, snap.ShowBadge)
	assert.Equal(t, []model.SnapshotItem{
		{Index: 1, Title: "Alice", DisplayCount: 1},
		{Index: 2, Title: "Reminder", DisplayCount: 2},
	}, snap.Items)
	assert.Equal(t, snap, pub.last())
	assert.Equal(t, int64(4), c.Passes())
}

func TestContext_PublisherFaultIsContained(t *testing.T) {
	tr := New(nil, testLogger())
	boom := PublisherFunc(func(*model.Snapshot) error { panic("renderer exploded") })

	var c *Context
	require.NotPanics(t, func() {
		c = activate(t, tr, Options{Publishers: []Publisher{boom}})
	})

	// The tray's own bookkeeping completes regardless.
	require.NotPanics(t, func() {
		tr.Add(note(1, "thunderbird", "mail"))
	})
	assert.Equal(t, 1, tr.Len())

	_, err := c.Recompute()
	assert.ErrorIs(t, err, ErrRecomputeFailed)

	// The aggregator is usable for the next pass.
	assert.Equal(t, core.PassIdle, c.aggregator.State())
}

func TestContext_PublisherErrorIsLogged(t *testing.T) {
	failing := PublisherFunc(func(*model.Snapshot) error { return errors.New("disk full") })
	c := activate(t, New(nil, testLogger()), Options{Publishers: []Publisher{failing}})

	snap, err := c.Recompute()
	require.NoError(t, err)
	assert.NotNil(t, snap)
}

func TestContext_ActivateItem(t *testing.T) {
	ack := &fakeAck{}
	tr := New(ack, testLogger())
	c := activate(t, tr, Options{RescanDelay: 10 * time.Millisecond})

	tr.Add(note(1, core.BurstKey, "Build failed"))
	tr.Add(note(2, core.BurstKey, "Build failed"))

	snap := c.Snapshot()
	require.Equal(t, 1, snap.Total)
	assert.Equal(t, 2, snap.Items[0].DisplayCount)

	require.NoError(t, c.ActivateItem(snap.ID, 1))

	// Both contributing notifications were opened exactly once.
	calls := ack.snapshot()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, []uint32{1, 2}, []uint32{calls[0].id, calls[1].id})
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, c.Snapshot().Total)

	assert.Eventually(t, func() bool { return c.Rescans() == 1 }, time.Second, 5*time.Millisecond)
}

func TestContext_ActivateItemErrors(t *testing.T) {
	tr := New(nil, testLogger())
	c := activate(t, tr, Options{RescanDelay: time.Millisecond})
	tr.Add(note(1, "thunderbird", "mail"))

	old := c.Snapshot()
	tr.Add(note(2, "thunderbird", "more mail"))

	assert.ErrorIs(t, c.ActivateItem(old.ID, 1), ErrStaleSnapshot)
	assert.ErrorIs(t, c.ActivateItem("", 5), ErrItemNotFound)
	assert.ErrorIs(t, c.ActivateItem(c.Snapshot().ID, 0), ErrItemNotFound)
}

func TestContext_ActionFaultIsContained(t *testing.T) {
	tr := New(nil, testLogger())
	c := activate(t, tr, Options{RescanDelay: time.Millisecond})

	c.mu.Lock()
	c.result = model.AggregationResult{
		Total: 1,
		Items: []model.GroupedItem{{Title: "bad", DisplayCount: 1, Action: func() { panic("nope") }}},
	}
	c.mu.Unlock()

	err := c.ActivateItem("", 1)
	assert.Error(t, err)
}

func TestContext_Close(t *testing.T) {
	tr := New(nil, testLogger())
	c := Activate(tr, Options{Logger: testLogger(), RescanDelay: 5 * time.Millisecond})
	passes := c.Passes()

	c.Close()
	c.Close()

	tr.Add(note(1, "thunderbird", "mail"))
	assert.Equal(t, passes, c.Passes(), "closed context ignores tray changes")

	_, err := c.Recompute()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.ActivateItem("", 1), ErrClosed)
}

func TestContext_NoPublishAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	tr := New(nil, testLogger())
	c := Activate(tr, Options{Logger: testLogger(), Publishers: []Publisher{pub}})
	published := len(pub.snaps)

	// A pass queued behind the lock when Close runs must not publish.
	c.mu.Lock()
	passDone := make(chan struct{})
	go func() {
		c.trigger()
		close(passDone)
	}()
	time.Sleep(20 * time.Millisecond)

	closeDone := make(chan struct{})
	go func() {
		c.Close()
		close(closeDone)
	}()
	require.Eventually(t, c.closed.Load, time.Second, time.Millisecond)
	c.mu.Unlock()

	<-passDone
	<-closeDone

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.snaps, published)
}

func TestContext_Idempotent(t *testing.T) {
	tr := New(nil, testLogger())
	c := activate(t, tr, Options{})
	tr.Add(chat(1, "Empathy", "Alice"))
	tr.Add(note(2, core.BurstKey, "Reminder"))

	first, err := c.Recompute()
	require.NoError(t, err)
	second, err := c.Recompute()
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Items, second.Items)
	assert.NotEqual(t, first.ID, second.ID)
}

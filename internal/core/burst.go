package core

import "github.com/jmylchreest/traybadge/internal/model"

// BurstCoalescer merges same-titled notify-send entries across a whole pass.
// Those notifications arrive as disconnected one-shot sources, so they are
// grouped by content rather than by owner.
//
// The zero value is inactive; Start must be called at the beginning of
// every pass and Finish drains it at the end.
type BurstCoalescer struct {
	pending map[string][]model.NotificationEntry
	order   []string
	active  bool
}

// Start discards any previous state and begins a pass.
func (c *BurstCoalescer) Start() {
	c.pending = make(map[string][]model.NotificationEntry)
	c.order = nil
	c.active = true
}

// Accept queues entries under their filtered titles. Nothing is emitted
// until Finish. Accept outside a pass is a no-op.
func (c *BurstCoalescer) Accept(entries []model.NotificationEntry, filter TitleFilter) {
	if !c.active {
		return
	}
	if filter == nil {
		filter = NormalizeTitle
	}
	for _, e := range entries {
		title := filter(e.Title)
		if _, seen := c.pending[title]; !seen {
			c.order = append(c.order, title)
		}
		c.pending[title] = append(c.pending[title], e)
	}
}

// Pending returns the number of distinct titles queued in this pass.
func (c *BurstCoalescer) Pending() int {
	return len(c.order)
}

// Finish emits one item per distinct title in first-seen order and ends the
// pass. Activating an item opens each contributing entry once.
func (c *BurstCoalescer) Finish() []model.GroupedItem {
	if !c.active {
		return nil
	}

	items := make([]model.GroupedItem, 0, len(c.order))
	for _, title := range c.order {
		entries := c.pending[title]
		items = append(items, model.GroupedItem{
			Title:        title,
			DisplayCount: len(entries),
			Action:       openAll(entries),
		})
	}

	c.pending = nil
	c.order = nil
	c.active = false
	return items
}

func openAll(entries []model.NotificationEntry) model.Action {
	return func() {
		for _, e := range entries {
			if e.Open != nil {
				e.Open()
			}
		}
	}
}

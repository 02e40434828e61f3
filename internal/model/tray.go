package model

import (
	"strconv"
	"strings"
)

// UnknownCount is the DisplayCount sentinel meaning the count is
// intentionally not shown.
const UnknownCount = -1

// Action is invoked when the user activates something.
type Action func()

// NotificationEntry is one queued notification of a TraySource.
type NotificationEntry struct {
	Title string
	Open  Action
}

// TraySource is one notification producer as seen by the aggregator.
// RawCount is the source's counter label; anything that is not a positive
// base-10 integer means "no count".
type TraySource struct {
	Identifier     string
	Title          string
	RawCount       string
	Entries        []NotificationEntry
	ChatCapable    bool
	HasAppIdentity bool
	Open           Action
}

// Count parses RawCount. ok is false when the source carries no count.
func (s *TraySource) Count() (int, bool) {
	return ParseCount(s.RawCount)
}

// ParseCount parses a counter label. Absent, non-numeric and non-positive
// values yield (0, false).
func ParseCount(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// GroupedItem is one activatable line of the aggregated menu.
type GroupedItem struct {
	Title        string
	DisplayCount int
	Action       Action
}

// HasCount reports whether the item carries a visible count.
func (g GroupedItem) HasCount() bool {
	return g.DisplayCount != UnknownCount
}

// Activate runs the item's action if there is one.
func (g GroupedItem) Activate() {
	if g.Action != nil {
		g.Action()
	}
}

// AggregationResult is the output of one aggregation pass.
// Total is the number of items, never the sum of their counts.
type AggregationResult struct {
	Total int
	Items []GroupedItem
}

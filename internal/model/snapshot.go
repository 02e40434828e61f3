package model

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// SnapshotItem is the serialisable form of a GroupedItem.
// Index is 1-based for user-friendliness.
type SnapshotItem struct {
	Index        int    `json:"index" yaml:"index"`
	Title        string `json:"title" yaml:"title"`
	DisplayCount int    `json:"display_count" yaml:"display_count"`
}

// HasCount reports whether the item carries a visible count.
func (i SnapshotItem) HasCount() bool {
	return i.DisplayCount != UnknownCount
}

// Snapshot is the published form of an AggregationResult.
// Actions cannot be serialised, so items are activated by (ID, Index)
// through the daemon that produced the snapshot.
type Snapshot struct {
	ID        string         `json:"id" yaml:"id"`
	Total     int            `json:"total" yaml:"total"`
	ShowBadge bool           `json:"show_badge" yaml:"show_badge"`
	Items     []SnapshotItem `json:"items" yaml:"items"`
	UpdatedAt int64          `json:"updated_at" yaml:"updated_at"`
}

// NewSnapshot converts an aggregation result into a snapshot with a fresh ULID.
func NewSnapshot(result AggregationResult, alwaysShow bool) (*Snapshot, error) {
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	items := make([]SnapshotItem, 0, len(result.Items))
	for i, item := range result.Items {
		items = append(items, SnapshotItem{
			Index:        i + 1,
			Title:        item.Title,
			DisplayCount: item.DisplayCount,
		})
	}

	return &Snapshot{
		ID:        id.String(),
		Total:     result.Total,
		ShowBadge: result.Total > 0 || alwaysShow,
		Items:     items,
		UpdatedAt: now.Unix(),
	}, nil
}

// EmptySnapshot returns the snapshot shown before the first pass.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Items: []SnapshotItem{}}
}

// UpdatedAtTime returns the update timestamp as a time.Time.
func (s *Snapshot) UpdatedAtTime() time.Time {
	return time.Unix(s.UpdatedAt, 0)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"3", 3, true},
		{" 12 ", 12, true},
		{"0", 0, false},
		{"-4", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"2.5", 0, false},
		{"3 new", 0, false},
		{"0x10", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseCount(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestTraySource_Count(t *testing.T) {
	src := TraySource{RawCount: "5"}
	n, ok := src.Count()
	assert.True(t, ok)
	assert.Equal(t, 5, n)
}

func TestGroupedItem_Activate(t *testing.T) {
	called := 0
	item := GroupedItem{Title: "x", DisplayCount: 1, Action: func() { called++ }}
	item.Activate()
	assert.Equal(t, 1, called)
	assert.True(t, item.HasCount())

	// nil action is tolerated
	GroupedItem{DisplayCount: UnknownCount}.Activate()
	assert.False(t, GroupedItem{DisplayCount: UnknownCount}.HasCount())
}

func TestNewSnapshot(t *testing.T) {
	result := AggregationResult{
		Total: 2,
		Items: []GroupedItem{
			{Title: "Alice", DisplayCount: 3},
			{Title: "Reminder", DisplayCount: UnknownCount},
		},
	}

	snap, err := NewSnapshot(result, false)
	require.NoError(t, err)

	assert.Len(t, snap.ID, 26)
	assert.Equal(t, 2, snap.Total)
	assert.True(t, snap.ShowBadge)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, SnapshotItem{Index: 1, Title: "Alice", DisplayCount: 3}, snap.Items[0])
	assert.Equal(t, 2, snap.Items[1].Index)
	assert.False(t, snap.Items[1].HasCount())
	assert.Greater(t, snap.UpdatedAt, int64(0))
}

func TestNewSnapshot_BadgeVisibility(t *testing.T) {
	empty := AggregationResult{}

	snap, err := NewSnapshot(empty, false)
	require.NoError(t, err)
	assert.False(t, snap.ShowBadge)
	assert.NotNil(t, snap.Items)

	snap, err = NewSnapshot(empty, true)
	require.NoError(t, err)
	assert.True(t, snap.ShowBadge)
}

func TestNewSnapshot_UniqueIDs(t *testing.T) {
	a, err := NewSnapshot(AggregationResult{}, false)
	require.NoError(t, err)
	b, err := NewSnapshot(AggregationResult{}, false)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

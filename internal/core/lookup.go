package core

import "github.com/jmylchreest/traybadge/internal/model"

// LookupByIndex finds an item by its index (1-based for user-friendliness).
// Returns nil if index is out of bounds.
func LookupByIndex(items []model.GroupedItem, index int) *model.GroupedItem {
	idx := index - 1
	if idx < 0 || idx >= len(items) {
		return nil
	}
	return &items[idx]
}

package core

import "github.com/jmylchreest/traybadge/internal/model"

// GroupEntries splits a source's entries into one item per distinct
// (filtered) title, in first-seen order. Every item activates the source
// itself, not the individual entry.
func GroupEntries(src *model.TraySource, s Strategy) []model.GroupedItem {
	if len(src.Entries) == 0 {
		return nil
	}

	open := src.Open
	if open == nil {
		open = func() {}
	}

	counts := make(map[string]int, len(src.Entries))
	var order []string
	for _, e := range src.Entries {
		title := s.Normalize(e.Title)
		if _, seen := counts[title]; !seen {
			order = append(order, title)
		}
		counts[title]++
	}

	items := make([]model.GroupedItem, 0, len(order))
	for _, title := range order {
		count := counts[title]
		if s.Kind != StrategyGroupVisibleCount {
			count = model.UnknownCount
		}
		items = append(items, model.GroupedItem{
			Title:        title,
			DisplayCount: count,
			Action:       open,
		})
	}
	return items
}

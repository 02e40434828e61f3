package core

import "github.com/jmylchreest/traybadge/internal/model"

// Classify derives the classification key of a source.
// Sources without a positive count are rejected before any other check.
func Classify(src *model.TraySource) (string, bool) {
	if _, ok := src.Count(); !ok {
		return "", false
	}

	switch {
	case src.ChatCapable:
		return ChatKey, true
	case src.Title == BurstKey:
		return BurstKey, true
	case src.HasAppIdentity:
		return src.Identifier, src.Identifier != ""
	default:
		return "", false
	}
}

// Package output provides output formatters for badge snapshots.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/traybadge/internal/model"
)

// Formatter formats a snapshot for output.
type Formatter interface {
	// Format writes the formatted snapshot to the writer.
	Format(w io.Writer, snap *model.Snapshot) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatWaybar FormatType = "waybar"
	FormatPlain  FormatType = "plain"
	FormatDmenu  FormatType = "dmenu"
	FormatJSON   FormatType = "json"
	FormatYAML   FormatType = "yaml"
)

// FormatTypes lists every supported format.
func FormatTypes() []FormatType {
	return []FormatType{FormatWaybar, FormatPlain, FormatDmenu, FormatJSON, FormatYAML}
}

// ParseFormatType parses a format name.
func ParseFormatType(s string) (FormatType, error) {
	f := FormatType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FormatTypes() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatWaybar:
		return NewWaybarFormatter(opts)
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom template for plain format
	ShowIndex bool   // Show 1-based index prefix
	ShowTime  bool   // Show when the snapshot was taken
	Separator string // Field separator for dmenu format
	MaxItems  int    // Maximum items in tooltips (0 = unlimited)
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex: true,
		ShowTime:  true,
		Separator: " | ",
		MaxItems:  20,
	}
}

// CountSuffix renders a display count. An unknown count has no suffix;
// zero is shown as "(0)".
func CountSuffix(displayCount int) string {
	if displayCount == model.UnknownCount {
		return ""
	}
	return fmt.Sprintf(" (%d)", displayCount)
}

// ItemLabel returns the item title with its count suffix.
func ItemLabel(item model.SnapshotItem) string {
	return item.Title + CountSuffix(item.DisplayCount)
}

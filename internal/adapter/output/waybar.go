package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/traybadge/internal/model"
)

// Waybar classes.
const (
	ClassEmpty  = "empty"
	ClassUnread = "unread"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

// WaybarFormatter writes one status line per snapshot, suitable for
// Waybar's custom module with "return-type": "json".
type WaybarFormatter struct {
	opts FormatterOptions
}

// NewWaybarFormatter creates a new Waybar formatter.
func NewWaybarFormatter(opts FormatterOptions) *WaybarFormatter {
	return &WaybarFormatter{opts: opts}
}

// Format writes the snapshot as a single JSON line.
func (f *WaybarFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	return json.NewEncoder(w).Encode(f.Status(snap))
}

// Status builds the Waybar status for snap. A hidden badge has empty text.
func (f *WaybarFormatter) Status(snap *model.Snapshot) WaybarStatus {
	if snap == nil || !snap.ShowBadge {
		return WaybarStatus{Text: "", Alt: ClassEmpty, Class: ClassEmpty, Tooltip: "No notifications"}
	}

	class := ClassUnread
	if snap.Total == 0 {
		class = ClassEmpty
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", snap.Total),
		Alt:        class,
		Tooltip:    f.tooltip(snap),
		Class:      class,
		Percentage: min(snap.Total, 100),
	}
}

func (f *WaybarFormatter) tooltip(snap *model.Snapshot) string {
	if len(snap.Items) == 0 {
		return "No notifications"
	}

	items := snap.Items
	more := 0
	if f.opts.MaxItems > 0 && len(items) > f.opts.MaxItems {
		more = len(items) - f.opts.MaxItems
		items = items[:f.opts.MaxItems]
	}

	lines := make([]string, 0, len(items)+1)
	for _, item := range items {
		lines = append(lines, ItemLabel(item))
	}
	if more > 0 {
		lines = append(lines, fmt.Sprintf("… and %d more", more))
	}
	return strings.Join(lines, "\n")
}

package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jmylchreest/traybadge/internal/model"
)

// DmenuFormatter formats items for dmenu/rofi/fuzzel, one per line.
// The selected line can be fed back through ParseDmenuSelection.
type DmenuFormatter struct {
	opts FormatterOptions
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	return &DmenuFormatter{opts: opts}
}

// Format writes one line per item.
func (f *DmenuFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	if snap == nil {
		return nil
	}
	for _, item := range snap.Items {
		if _, err := fmt.Fprintln(w, f.formatLine(item)); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) formatLine(item model.SnapshotItem) string {
	label := sanitizeLine(ItemLabel(item))
	if !f.opts.ShowIndex {
		return label
	}
	return strconv.Itoa(item.Index) + f.separator() + label
}

func (f *DmenuFormatter) separator() string {
	if f.opts.Separator == "" {
		return " | "
	}
	return f.opts.Separator
}

// ParseDmenuSelection extracts the 1-based index from a line produced with
// ShowIndex enabled.
func ParseDmenuSelection(line, separator string) (int, error) {
	if separator == "" {
		separator = " | "
	}
	head, _, _ := strings.Cut(strings.TrimSpace(line), strings.TrimSpace(separator))
	index, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil || index < 1 {
		return 0, fmt.Errorf("invalid selection %q", line)
	}
	return index, nil
}

// sanitizeLine keeps a label on a single line.
func sanitizeLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

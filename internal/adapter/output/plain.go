package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/traybadge/internal/model"
)

// PlainFormatter formats a snapshot as human-readable text. Styling is
// dropped automatically when the writer is not a terminal.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes the snapshot as plain text.
func (f *PlainFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	if snap == nil {
		snap = model.EmptySnapshot()
	}

	if f.template != nil {
		for _, item := range snap.Items {
			if err := f.template.Execute(w, templateData{Item: item, Label: ItemLabel(item)}); err != nil {
				return err
			}
		}
		return nil
	}

	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true)
	index := r.NewStyle().Foreground(lipgloss.Color("8"))
	count := r.NewStyle().Foreground(lipgloss.Color("3"))
	faint := r.NewStyle().Faint(true)

	var sb strings.Builder

	if len(snap.Items) == 0 {
		sb.WriteString(header.Render("No notifications"))
	} else {
		sb.WriteString(header.Render(fmt.Sprintf("%d %s", snap.Total, plural(snap.Total, "item", "items"))))
	}
	sb.WriteString("\n")

	for _, item := range snap.Items {
		if f.opts.ShowIndex {
			sb.WriteString(index.Render(fmt.Sprintf("[%d]", item.Index)))
			sb.WriteString(" ")
		}
		sb.WriteString(item.Title)
		if suffix := CountSuffix(item.DisplayCount); suffix != "" {
			sb.WriteString(count.Render(suffix))
		}
		sb.WriteString("\n")
	}

	if f.opts.ShowTime {
		sb.WriteString(faint.Render(updatedText(snap)))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func updatedText(snap *model.Snapshot) string {
	if snap.UpdatedAt == 0 {
		return "never updated"
	}
	return "updated " + humanize.Time(snap.UpdatedAtTime())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// templateData provides data for custom templates.
type templateData struct {
	Item  model.SnapshotItem
	Label string
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"suffix": CountSuffix,
	}
}

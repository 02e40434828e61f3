package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/traybadge/internal/model"
)

// JSONFormatter formats the snapshot as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes the snapshot as indented JSON.
func (f *JSONFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	if snap == nil {
		snap = model.EmptySnapshot()
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snap)
}

// YAMLFormatter formats the snapshot as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes the snapshot as YAML.
func (f *YAMLFormatter) Format(w io.Writer, snap *model.Snapshot) error {
	if snap == nil {
		snap = model.EmptySnapshot()
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(snap); err != nil {
		return err
	}
	return encoder.Close()
}

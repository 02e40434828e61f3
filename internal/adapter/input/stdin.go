package input

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/jmylchreest/traybadge/internal/model"
)

// StdinAdapter reads a JSON snapshot (as written by "list --format json")
// from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return SourceStdin
}

// Snapshot decodes one snapshot from the reader.
func (a *StdinAdapter) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	const maxSize = 10 * 1024 * 1024 // 10MB max

	data, err := io.ReadAll(io.LimitReader(a.reader, maxSize))
	if err != nil {
		return nil, &AdapterError{Source: SourceStdin, Message: "failed to read stdin", Err: err}
	}
	if len(data) == 0 {
		return model.EmptySnapshot(), nil
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &AdapterError{Source: SourceStdin, Message: "failed to parse JSON input", Err: err}
	}
	if snap.Items == nil {
		snap.Items = []model.SnapshotItem{}
	}
	return &snap, nil
}

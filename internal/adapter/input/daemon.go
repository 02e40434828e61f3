package input

import (
	"context"

	"github.com/jmylchreest/traybadge/internal/model"
	"github.com/jmylchreest/traybadge/internal/store"
)

// SnapshotClient is the subset of the control client the daemon adapter needs.
type SnapshotClient interface {
	Snapshot(ctx context.Context) (*model.Snapshot, error)
}

// DaemonAdapter asks a running daemon for its snapshot.
type DaemonAdapter struct {
	client SnapshotClient
}

// NewDaemonAdapter creates a DaemonAdapter.
func NewDaemonAdapter(client SnapshotClient) *DaemonAdapter {
	return &DaemonAdapter{client: client}
}

// Name returns the adapter identifier.
func (a *DaemonAdapter) Name() string {
	return SourceDaemon
}

// Snapshot fetches the live snapshot.
func (a *DaemonAdapter) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if a.client == nil {
		return nil, &AdapterError{Source: SourceDaemon, Message: "no control client"}
	}
	snap, err := a.client.Snapshot(ctx)
	if err != nil {
		return nil, &AdapterError{Source: SourceDaemon, Message: "failed to query daemon", Err: err}
	}
	return snap, nil
}

// FileAdapter reads the snapshot the daemon last wrote to disk.
type FileAdapter struct {
	file *store.SnapshotFile
}

// NewFileAdapter creates a FileAdapter.
func NewFileAdapter(file *store.SnapshotFile) *FileAdapter {
	return &FileAdapter{file: file}
}

// Name returns the adapter identifier.
func (a *FileAdapter) Name() string {
	return SourceFile
}

// Snapshot loads the snapshot file.
func (a *FileAdapter) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := a.file.Load()
	if err != nil {
		return nil, &AdapterError{Source: SourceFile, Message: "failed to load snapshot file", Err: err}
	}
	return snap, nil
}

// Package store persists the latest badge snapshot so that status bars and
// the CLI can read it without talking to the daemon.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmylchreest/traybadge/internal/model"
)

// SchemaVersion is the current snapshot file schema version.
const SchemaVersion = 1

// ErrUnsupportedSchema is returned for files written by a newer version.
var ErrUnsupportedSchema = errors.New("unsupported snapshot schema version")

type snapshotFile struct {
	SchemaVersion int             `json:"schema_version"`
	Snapshot      *model.Snapshot `json:"snapshot"`
}

// SnapshotFile is the on-disk copy of the latest snapshot.
type SnapshotFile struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotFile returns a SnapshotFile at path. Nothing is written until Save.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the file path.
func (f *SnapshotFile) Path() string {
	return f.path
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (f *SnapshotFile) Load() (*model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.EmptySnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", f.path, err)
	}
	if file.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("%w %d (max: %d)", ErrUnsupportedSchema, file.SchemaVersion, SchemaVersion)
	}
	if file.Snapshot == nil {
		return model.EmptySnapshot(), nil
	}
	if file.Snapshot.Items == nil {
		file.Snapshot.Items = []model.SnapshotItem{}
	}
	return file.Snapshot, nil
}

// Save writes snap atomically: readers see either the old or the new file.
func (f *SnapshotFile) Save(snap *model.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(snapshotFile{SchemaVersion: SchemaVersion, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Publish saves snap. It implements tray.Publisher.
func (f *SnapshotFile) Publish(snap *model.Snapshot) error {
	return f.Save(snap)
}

// Clear removes the snapshot file, e.g. on daemon shutdown.
func (f *SnapshotFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

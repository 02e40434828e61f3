// Package input provides adapters that fetch the current badge snapshot.
package input

import (
	"context"
	"errors"

	"github.com/jmylchreest/traybadge/internal/model"
)

// Source names.
const (
	SourceAuto   = ""
	SourceDaemon = "daemon"
	SourceFile   = "file"
	SourceStdin  = "stdin"
)

// InputAdapter fetches a snapshot from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "daemon", "file").
	Name() string

	// Snapshot fetches the latest snapshot from the source.
	Snapshot(ctx context.Context) (*model.Snapshot, error)
}

// NewAdapter creates an InputAdapter for the specified source. An empty
// source asks the daemon and falls back to the snapshot file.
func NewAdapter(source string, daemon, file InputAdapter) (InputAdapter, error) {
	switch source {
	case SourceAuto:
		return &fallbackAdapter{primary: daemon, fallback: file}, nil
	case SourceDaemon:
		return daemon, nil
	case SourceFile:
		return file, nil
	case SourceStdin:
		return NewStdinAdapter(), nil
	default:
		return nil, &AdapterError{
			Source:  source,
			Message: "unknown or unavailable adapter",
		}
	}
}

// fallbackAdapter asks primary first and uses fallback when it fails.
type fallbackAdapter struct {
	primary  InputAdapter
	fallback InputAdapter
	used     string
}

func (a *fallbackAdapter) Name() string {
	if a.used != "" {
		return a.used
	}
	return "auto"
}

func (a *fallbackAdapter) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	var primaryErr error
	if a.primary != nil {
		snap, err := a.primary.Snapshot(ctx)
		if err == nil {
			a.used = a.primary.Name()
			return snap, nil
		}
		primaryErr = err
	}
	if a.fallback == nil {
		return nil, &AdapterError{Source: "auto", Message: "no snapshot source available", Err: primaryErr}
	}

	snap, err := a.fallback.Snapshot(ctx)
	if err != nil {
		return nil, &AdapterError{Source: "auto", Message: "no snapshot source available", Err: errors.Join(primaryErr, err)}
	}
	a.used = a.fallback.Name()
	return snap, nil
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/traybadge/internal/adapter/input"
	"github.com/jmylchreest/traybadge/internal/store"
)

// RunOptions configures the menu.
type RunOptions struct {
	Source     input.InputAdapter
	Controller Controller
	Keybinding string
	WatchPath  string // Snapshot file to watch for changes (empty = no watching)
	Open       bool   // Start with the menu expanded
}

// Run starts the menu and blocks until it exits.
func Run(opts RunOptions) error {
	var refreshCh chan struct{}
	var watcher *store.FileWatcher

	if opts.WatchPath != "" {
		refreshCh = make(chan struct{}, 1)
		notify := func() {
			select {
			case refreshCh <- struct{}{}:
			default:
			}
		}

		var err error
		watcher, err = store.NewFileWatcher(opts.WatchPath, notify, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create file watcher: %v\n", err)
		} else if err := watcher.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to start file watcher: %v\n", err)
		}
	}

	m := New(opts.Source, opts.Controller, opts.Keybinding, refreshCh)
	m.open = opts.Open

	_, err := tea.NewProgram(m).Run()

	if watcher != nil {
		_ = watcher.Stop()
	}
	return err
}

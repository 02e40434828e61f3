package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the bursts of events a single atomic save produces.
const DefaultDebounce = 50 * time.Millisecond

// FileWatcher watches a single file and calls onChange when it is written,
// created or removed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onChange func()
	debounce time.Duration
	logger   *slog.Logger

	done    chan struct{}
	mu      sync.Mutex
	running bool
	timer   *time.Timer
}

// NewFileWatcher creates a watcher for filePath.
func NewFileWatcher(filePath string, onChange func(), logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher:  watcher,
		filePath: filePath,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce overrides the debounce interval. Zero disables debouncing.
func (fw *FileWatcher) SetDebounce(d time.Duration) {
	fw.mu.Lock()
	fw.debounce = d
	fw.mu.Unlock()
}

// Start begins watching the file for changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = true
	fw.mu.Unlock()

	// Watch the directory: atomic saves replace the file's inode.
	dir := filepath.Dir(fw.filePath)
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	go fw.watch()
	return nil
}

func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				fw.logger.Debug("watched file changed", "file", fw.filePath, "op", event.Op.String())
				fw.fire()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running || fw.onChange == nil {
		return
	}
	if fw.debounce <= 0 {
		go fw.onChange()
		return
	}
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, fw.onChange)
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return nil
	}

	fw.running = false
	if fw.timer != nil {
		fw.timer.Stop()
	}
	close(fw.done)
	return fw.watcher.Close()
}

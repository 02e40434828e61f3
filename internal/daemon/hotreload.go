package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/traybadge/internal/config"
)

// DefaultPollInterval is how often the config file's modification time is checked.
const DefaultPollInterval = time.Second

// LoadFunc loads and validates a configuration file.
type LoadFunc func(path string) (*config.Config, error)

// LoadWithEnv loads path and applies the environment toggles on top.
func LoadWithEnv(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigWatcher watches the config file for changes and validates new configs.
// An invalid file is reported and the current config stays in effect.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath  string
	lastModTime time.Time

	currentConfig *config.Config
	load          LoadFunc

	pollInterval time.Duration

	onReloadCallback func(newConfig *config.Config)
	onErrorCallback  func(err error)

	stopCh chan struct{}
	doneCh chan struct{}

	running bool
}

// NewConfigWatcher creates a new ConfigWatcher for path.
func NewConfigWatcher(path string, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = config.ConfigPath()
	}
	return &ConfigWatcher{
		logger:       logger,
		configPath:   path,
		load:         LoadWithEnv,
		pollInterval: DefaultPollInterval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// SetPollInterval sets the polling interval for file changes.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

// SetLoader replaces the function used to load the file.
func (w *ConfigWatcher) SetLoader(load LoadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.load = load
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the config file for changes.
func (w *ConfigWatcher) Start(ctx context.Context, initialConfig *config.Config) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.currentConfig = initialConfig

	if info, err := os.Stat(w.configPath); err == nil {
		w.lastModTime = info.ModTime()
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	interval := w.pollInterval
	w.mu.Unlock()

	go w.watchLoop(ctx, interval)

	w.logger.Debug("config watcher started", "path", w.configPath, "interval", interval)
	return nil
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	w.logger.Debug("config watcher stopped")
}

// GetCurrentConfig returns the current valid configuration.
func (w *ConfigWatcher) GetCurrentConfig() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

func (w *ConfigWatcher) watchLoop(ctx context.Context, interval time.Duration) {
	defer close(w.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

func (w *ConfigWatcher) checkForChanges() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	lastModTime := w.lastModTime
	load := w.load
	w.mu.RUnlock()

	info, err := os.Stat(w.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to stat config file", "path", w.configPath, "error", err)
		}
		return
	}

	modTime := info.ModTime()
	if !modTime.After(lastModTime) {
		return
	}

	w.mu.Lock()
	w.lastModTime = modTime
	w.mu.Unlock()

	w.logger.Debug("config file changed", "path", w.configPath, "modTime", modTime)

	newConfig, err := load(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")
	if reloadCallback != nil {
		reloadCallback(newConfig)
	}
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/traybadge/internal/config"
	"github.com/jmylchreest/traybadge/internal/dbus"
	"github.com/jmylchreest/traybadge/internal/model"
	"github.com/jmylchreest/traybadge/internal/store"
	"github.com/jmylchreest/traybadge/internal/tray"
)

// AppName is the name traybadged announces on the bus.
const AppName = "traybadged"

// busSource is where notifications come from: the notification server in
// server mode, the monitor in monitor mode.
type busSource interface {
	SetNotifyHandler(handler dbus.NotificationHandler)
	SetCloseHandler(handler dbus.CloseHandler)
	Start() error
	Stop() error
}

// Options configures a Daemon.
type Options struct {
	Config     *config.Config
	ConfigPath string // Watched for changes; empty uses the default path
	Logger     *slog.Logger
	Level      *slog.LevelVar // Adjusted when behavior.verbose changes
	Version    string
}

// Daemon wires the notification bus, the tray, the activation context and
// its publishers together.
type Daemon struct {
	mu      sync.Mutex
	cfg     *config.Config
	logger  *slog.Logger
	level   *slog.LevelVar
	version string

	tray    *tray.Tray
	current *tray.Context
	file    *store.SnapshotFile
	control *dbus.ControlServer
	source  busSource

	watcher  *ConfigWatcher
	notifier *InternalNotifier
}

// New prepares a daemon for the mode named in the config. Nothing touches
// the bus until Start.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := newDaemon(cfg, logger, store.NewSnapshotFile(config.SnapshotPath()))
	d.level = opts.Level
	d.version = opts.Version
	d.control = dbus.NewControlServer(nil, logger)
	d.watcher = NewConfigWatcher(opts.ConfigPath, logger)

	switch config.Mode(cfg.Behavior.Mode) {
	case config.ModeMonitor:
		monitor := dbus.NewMonitor(logger)
		d.source = monitor

		remote, err := dbus.NewRemoteAcknowledger(logger)
		if err != nil {
			logger.Warn("activations will not reach the notification daemon", "error", err)
			d.tray = tray.New(tray.NopAcknowledger{}, logger)
		} else {
			d.tray = tray.New(remote, logger)
			d.notifier.SetSender(func(n *dbus.DBusNotification) error {
				_, err := remote.Send(n)
				return err
			})
		}

	default:
		server := dbus.NewNotificationServer(logger)
		info := dbus.DefaultServerInfo()
		if d.version != "" {
			info.Version = d.version
		}
		server.SetServerInfo(info)
		d.source = server
		d.tray = tray.New(server, logger)
		d.notifier.SetSender(func(n *dbus.DBusNotification) error {
			if _, derr := server.Notify(n.AppName, 0, n.AppIcon, n.Summary, n.Body,
				n.Actions, n.Hints, n.ExpireTimeout); derr != nil {
				return derr
			}
			return nil
		})
	}

	return d, nil
}

// newDaemon builds a daemon with no bus attachments.
func newDaemon(cfg *config.Config, logger *slog.Logger, file *store.SnapshotFile) *Daemon {
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		tray:     tray.New(tray.NopAcknowledger{}, logger),
		file:     file,
		notifier: NewInternalNotifier(logger),
	}
}

// Start attaches to the bus, activates the tray context and begins watching
// the config file.
func (d *Daemon) Start(ctx context.Context) error {
	if err := config.EnsureRuntimeDir(); err != nil {
		d.logger.Warn("failed to create runtime directory", "error", err)
	}

	if d.control != nil {
		if err := d.control.Start(); err != nil {
			return fmt.Errorf("failed to start control interface: %w", err)
		}
	}

	if err := d.Reload(d.cfg); err != nil {
		return err
	}

	if d.source != nil {
		d.source.SetNotifyHandler(d.handleNotify)
		d.source.SetCloseHandler(d.handleClose)
		if err := d.source.Start(); err != nil {
			return fmt.Errorf("failed to attach to notification bus: %w", err)
		}
	}

	if d.watcher != nil {
		d.watcher.SetReloadCallback(d.applyReload)
		d.watcher.SetErrorCallback(func(err error) {
			d.notifier.NotifyConfigError(err)
		})
		if err := d.watcher.Start(ctx, d.cfg); err != nil {
			d.logger.Warn("failed to start config watcher", "error", err)
		}
	}

	d.logger.Info("traybadged ready",
		"mode", d.cfg.Behavior.Mode,
		"snapshot", d.file.Path(),
	)
	return nil
}

// Reload applies cfg. The current context is closed and a new one is
// activated with a registry built from cfg. The mode cannot change at
// runtime.
func (d *Daemon) Reload(cfg *config.Config) error {
	registry, err := cfg.BuildRegistry()
	if err != nil {
		return fmt.Errorf("failed to build strategy registry: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cfg != nil && cfg.Behavior.Mode != d.cfg.Behavior.Mode {
		d.logger.Warn("mode change requires a restart", "running", d.cfg.Behavior.Mode, "configured", cfg.Behavior.Mode)
	}

	if d.current != nil {
		d.current.Close()
	}

	d.current = tray.Activate(d.tray, tray.Options{
		Registry:        registry,
		AlwaysShowBadge: cfg.Behavior.AlwaysShowBadge,
		RescanDelay:     cfg.Behavior.RescanDelay.Duration(),
		Publishers:      d.publishers(),
		Logger:          d.logger,
	})
	if d.control != nil {
		d.control.SetBackend(d.current)
	}

	if d.level != nil {
		if cfg.Behavior.Verbose {
			d.level.Set(slog.LevelDebug)
		} else {
			d.level.Set(slog.LevelInfo)
		}
	}

	mode := d.cfg.Behavior.Mode
	d.cfg = cfg
	d.cfg.Behavior.Mode = mode

	d.logger.Debug("tray context activated", "strategies", registry.Keys())
	return nil
}

// applyReload is the config watcher's reload callback.
func (d *Daemon) applyReload(cfg *config.Config) {
	if err := d.Reload(cfg); err != nil {
		d.logger.Warn("failed to apply reloaded config", "error", err)
		d.notifier.NotifyConfigError(err)
		return
	}
	d.notifier.NotifyConfigReloaded()
}

func (d *Daemon) publishers() []tray.Publisher {
	pubs := []tray.Publisher{d.file}
	if d.control != nil {
		pubs = append(pubs, d.control)
	}
	return pubs
}

func (d *Daemon) handleNotify(n *dbus.DBusNotification, id uint32) {
	notification := n.ToModel(id)
	if err := notification.Validate(); err != nil {
		d.logger.Warn("dropping invalid notification", "id", id, "app", n.AppName, "error", err)
		return
	}
	d.tray.Add(notification)
}

func (d *Daemon) handleClose(id uint32, reason dbus.CloseReason) {
	if d.tray.Remove(id) {
		d.logger.Debug("notification left the tray", "id", id, "reason", reason.String())
	}
}

// Tray returns the tray fed by the bus.
func (d *Daemon) Tray() *tray.Tray {
	return d.tray
}

// Snapshot returns the latest snapshot, or an empty one before Start.
func (d *Daemon) Snapshot() *model.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return model.EmptySnapshot()
	}
	return d.current.Snapshot()
}

// Config returns the config in effect.
func (d *Daemon) Config() *config.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Stop detaches from the bus, closes the context and removes the snapshot
// file so that readers stop showing a stale badge.
func (d *Daemon) Stop() error {
	var errs []error

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.source != nil {
		if err := d.source.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("bus source: %w", err))
		}
	}

	d.mu.Lock()
	if d.current != nil {
		d.current.Close()
		d.current = nil
	}
	if d.control != nil {
		d.control.SetBackend(nil)
	}
	d.mu.Unlock()

	if d.control != nil {
		if err := d.control.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("control interface: %w", err))
		}
	}
	if err := d.file.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("snapshot file: %w", err))
	}

	d.logger.Info("traybadged stopped")
	return errors.Join(errs...)
}

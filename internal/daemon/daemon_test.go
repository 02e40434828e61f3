package daemon

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/traybadge/internal/config"
	"github.com/jmylchreest/traybadge/internal/dbus"
	"github.com/jmylchreest/traybadge/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDaemon(t *testing.T, cfg *config.Config) (*Daemon, *store.SnapshotFile) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	file := store.NewSnapshotFile(filepath.Join(t.TempDir(), "snapshot.json"))
	d := newDaemon(cfg, testLogger(), file)
	require.NoError(t, d.Reload(cfg))
	t.Cleanup(func() { _ = d.Stop() })
	return d, file
}

func thunderbird(summary string) *dbus.DBusNotification {
	return &dbus.DBusNotification{
		AppName: "Thunderbird",
		Summary: summary,
		Hints: map[string]godbus.Variant{
			"desktop-entry": godbus.MakeVariant("thunderbird"),
		},
	}
}

func TestDaemon_NotificationReachesSnapshotFile(t *testing.T) {
	d, file := testDaemon(t, nil)

	d.handleNotify(thunderbird("New mail"), 1)

	assert.Equal(t, 1, d.Snapshot().Total)
	loaded, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, d.Snapshot().ID, loaded.ID)
	assert.Equal(t, 1, loaded.Total)
}

func TestDaemon_InvalidNotificationDropped(t *testing.T) {
	d, _ := testDaemon(t, nil)

	d.handleNotify(thunderbird(""), 1)
	d.handleNotify(thunderbird("zero id"), 0)

	assert.Equal(t, 0, d.Tray().Len())
	assert.Equal(t, 0, d.Snapshot().Total)
}

func TestDaemon_CloseRemovesFromTray(t *testing.T) {
	d, _ := testDaemon(t, nil)

	d.handleNotify(thunderbird("New mail"), 7)
	require.Equal(t, 1, d.Snapshot().Total)

	d.handleClose(7, dbus.CloseReasonClosed)
	assert.Equal(t, 0, d.Tray().Len())
	assert.Equal(t, 0, d.Snapshot().Total)

	d.handleClose(7, dbus.CloseReasonClosed)
}

func TestDaemon_ReloadAppliesStrategies(t *testing.T) {
	d, _ := testDaemon(t, nil)
	d.handleNotify(thunderbird("New mail"), 1)
	before := d.Snapshot()
	require.Equal(t, 1, before.Total)

	cfg := config.DefaultConfig()
	cfg.Strategies = []config.StrategyConfig{{Key: "thunderbird", Kind: "ignore"}}
	require.NoError(t, d.Reload(cfg))

	after := d.Snapshot()
	assert.Equal(t, 0, after.Total)
	assert.NotEqual(t, before.ID, after.ID)
	assert.Equal(t, 1, d.Tray().Len(), "reloading keeps the notifications")
}

func TestDaemon_ReloadAlwaysShow(t *testing.T) {
	d, _ := testDaemon(t, nil)
	assert.False(t, d.Snapshot().ShowBadge)

	cfg := config.DefaultConfig()
	cfg.Behavior.AlwaysShowBadge = true
	require.NoError(t, d.Reload(cfg))
	assert.True(t, d.Snapshot().ShowBadge)
}

func TestDaemon_ReloadRejectsBadStrategy(t *testing.T) {
	d, _ := testDaemon(t, nil)
	before := d.Snapshot()

	cfg := config.DefaultConfig()
	cfg.Strategies = []config.StrategyConfig{{Key: "x", Kind: "sideways"}}
	assert.Error(t, d.Reload(cfg))
	assert.Equal(t, before.ID, d.Snapshot().ID)
}

func TestDaemon_ReloadKeepsMode(t *testing.T) {
	d, _ := testDaemon(t, nil)

	cfg := config.DefaultConfig()
	cfg.Behavior.Mode = string(config.ModeMonitor)
	require.NoError(t, d.Reload(cfg))
	assert.Equal(t, string(config.ModeServer), d.Config().Behavior.Mode)
}

func TestDaemon_ReloadSetsLevel(t *testing.T) {
	d, _ := testDaemon(t, nil)
	d.level = new(slog.LevelVar)

	cfg := config.DefaultConfig()
	cfg.Behavior.Verbose = true
	require.NoError(t, d.Reload(cfg))
	assert.Equal(t, slog.LevelDebug, d.level.Level())

	require.NoError(t, d.Reload(config.DefaultConfig()))
	assert.Equal(t, slog.LevelInfo, d.level.Level())
}

func TestDaemon_ActivateThroughContext(t *testing.T) {
	d, _ := testDaemon(t, nil)
	d.handleNotify(thunderbird("New mail"), 1)
	snap := d.Snapshot()
	require.Len(t, snap.Items, 1)

	d.mu.Lock()
	current := d.current
	d.mu.Unlock()

	require.NoError(t, current.ActivateItem(snap.ID, 1))
	assert.Equal(t, 0, d.Tray().Len())
	assert.Equal(t, 0, d.Snapshot().Total)
}

func TestDaemon_StopClearsSnapshotFile(t *testing.T) {
	d, file := testDaemon(t, nil)
	d.handleNotify(thunderbird("New mail"), 1)

	_, err := os.Stat(file.Path())
	require.NoError(t, err)

	require.NoError(t, d.Stop())
	_, err = os.Stat(file.Path())
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, d.Snapshot().Total)
}

func TestDaemon_ApplyReloadNotifies(t *testing.T) {
	d, _ := testDaemon(t, nil)
	var summaries []string
	d.notifier.SetSender(func(n *dbus.DBusNotification) error {
		summaries = append(summaries, n.Summary)
		return nil
	})

	d.applyReload(config.DefaultConfig())

	bad := config.DefaultConfig()
	bad.Strategies = []config.StrategyConfig{{Key: "x", Kind: "sideways"}}
	d.applyReload(bad)

	assert.Equal(t, []string{"Configuration Reloaded", "Configuration Error"}, summaries)
}

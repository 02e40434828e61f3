package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/traybadge/internal/config"
)

func writeConfig(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestConfigWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "[behavior]\nmode = \"server\"\n", base)

	w := NewConfigWatcher(path, testLogger())
	w.SetPollInterval(10 * time.Millisecond)

	reloaded := make(chan *config.Config, 1)
	w.SetReloadCallback(func(cfg *config.Config) { reloaded <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	initial := config.DefaultConfig()
	require.NoError(t, w.Start(ctx, initial))
	defer w.Stop()

	writeConfig(t, path, "[behavior]\nmode = \"server\"\nalways_show_badge = true\n", base.Add(time.Minute))

	select {
	case cfg := <-reloaded:
		assert.True(t, cfg.Behavior.AlwaysShowBadge)
		assert.Same(t, cfg, w.GetCurrentConfig())
	case <-time.After(2 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestConfigWatcher_InvalidConfigKeepsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	base := time.Now().Add(-time.Hour)
	writeConfig(t, path, "", base)

	w := NewConfigWatcher(path, testLogger())
	w.SetPollInterval(10 * time.Millisecond)

	failed := make(chan error, 1)
	w.SetErrorCallback(func(err error) { failed <- err })
	w.SetReloadCallback(func(*config.Config) { t.Error("invalid config must not be applied") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	initial := config.DefaultConfig()
	require.NoError(t, w.Start(ctx, initial))
	defer w.Stop()

	writeConfig(t, path, "[behavior]\nmode = \"sideways\"\n", base.Add(time.Minute))

	select {
	case err := <-failed:
		assert.Error(t, err)
		assert.Same(t, initial, w.GetCurrentConfig())
	case <-time.After(2 * time.Second):
		t.Fatal("validation error was not reported")
	}
}

func TestConfigWatcher_CustomLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "", time.Now().Add(-time.Hour))

	w := NewConfigWatcher(path, testLogger())
	loadErr := errors.New("boom")
	w.SetLoader(func(string) (*config.Config, error) { return nil, loadErr })

	var got error
	w.SetErrorCallback(func(err error) { got = err })
	w.lastModTime = time.Time{}
	w.checkForChanges()

	assert.ErrorIs(t, got, loadErr)
}

func TestConfigWatcher_UnchangedFileIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	mtime := time.Now().Add(-time.Hour)
	writeConfig(t, path, "", mtime)

	w := NewConfigWatcher(path, testLogger())
	calls := 0
	w.SetLoader(func(string) (*config.Config, error) {
		calls++
		return config.DefaultConfig(), nil
	})
	w.lastModTime = mtime
	w.checkForChanges()
	assert.Zero(t, calls)
}

func TestConfigWatcher_StopIsIdempotent(t *testing.T) {
	w := NewConfigWatcher(filepath.Join(t.TempDir(), "missing.toml"), testLogger())
	w.Stop()

	require.NoError(t, w.Start(context.Background(), config.DefaultConfig()))
	w.Stop()
	w.Stop()
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "", time.Now())

	t.Setenv(config.EnvAlwaysShow, "true")
	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.True(t, cfg.Behavior.AlwaysShowBadge)

	t.Setenv(config.EnvAlwaysShow, "maybe")
	_, err = LoadWithEnv(path)
	assert.Error(t, err)
}

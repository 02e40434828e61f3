package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/traybadge/internal/adapter/input"
	"github.com/jmylchreest/traybadge/internal/config"
	"github.com/jmylchreest/traybadge/internal/dbus"
	"github.com/jmylchreest/traybadge/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
	}
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "traybadge",
	Short: "Notification badge for Linux status bars",
	Long: `traybadge shows how many sources are waiting for your attention.

Notifications are grouped by the traybadged daemon into one item per
application, conversation or notify-send burst. The badge total is the
number of items. traybadge reads the daemon's latest snapshot and lets you
open items from a status bar, a dmenu-style launcher or the terminal.

Running traybadge without a subcommand launches the terminal menu.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ApplyEnv(); err != nil {
			return fmt.Errorf("failed to apply environment: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMenu(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/traybadge/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// controlClient connects to the daemon's control interface. A nil client
// means the session bus is unreachable.
func controlClient() *dbus.ControlClient {
	client, err := dbus.NewControlClient()
	if err != nil {
		logger.Debug("control interface unavailable", "error", err)
		return nil
	}
	return client
}

// snapshotSource builds the input adapter for source.
func snapshotSource(source string, client *dbus.ControlClient) (input.InputAdapter, error) {
	var sc input.SnapshotClient
	if client != nil {
		sc = client
	}
	file := store.NewSnapshotFile(config.SnapshotPath())
	return input.NewAdapter(source, input.NewDaemonAdapter(sc), input.NewFileAdapter(file))
}

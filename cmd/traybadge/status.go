package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/traybadge/internal/adapter/input"
	"github.com/jmylchreest/traybadge/internal/adapter/output"
	"github.com/jmylchreest/traybadge/internal/config"
	"github.com/jmylchreest/traybadge/internal/dbus"
	"github.com/jmylchreest/traybadge/internal/model"
	"github.com/jmylchreest/traybadge/internal/store"
)

const requestTimeout = 5 * time.Second

var statusOpts struct {
	source   string
	follow   bool
	maxItems int
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the badge in Waybar's custom module JSON format.

The text is the badge total and is empty when the badge is hidden. The
tooltip lists the grouped items. With --follow a new line is written
whenever the badge changes:

  "custom/notifications": {
    "exec": "traybadge status --follow",
    "return-type": "json",
    "on-click": "traybadge list | fuzzel -d | traybadge open -"
  }`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusOpts.source, "source", "",
		"Snapshot source (daemon, file, stdin; daemon with file fallback if empty)")
	statusCmd.Flags().BoolVarP(&statusOpts.follow, "follow", "F", false,
		"Keep running and print a line on every change")
	statusCmd.Flags().IntVar(&statusOpts.maxItems, "max-items", 20,
		"Maximum items listed in the tooltip (0=unlimited)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := controlClient()
	source, err := snapshotSource(statusOpts.source, client)
	if err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.MaxItems = statusOpts.maxItems
	formatter := output.NewWaybarFormatter(opts)

	if !statusOpts.follow {
		return printStatus(context.Background(), os.Stdout, source, formatter)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return followStatus(ctx, os.Stdout, source, client, formatter)
}

func printStatus(ctx context.Context, w io.Writer, source input.InputAdapter, formatter *output.WaybarFormatter) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	snap, err := source.Snapshot(ctx)
	if err != nil {
		logger.Debug("snapshot unavailable", "source", source.Name(), "error", err)
		snap = model.EmptySnapshot()
	}
	return formatter.Format(w, snap)
}

// followStatus prints the status on every Changed signal, or on every
// write of the snapshot file when the daemon is not reachable.
func followStatus(ctx context.Context, w io.Writer, source input.InputAdapter, client *dbus.ControlClient, formatter *output.WaybarFormatter) error {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	subscribed := false
	if client != nil {
		signals := make(chan dbus.Changed, 16)
		if err := client.Subscribe(ctx, signals); err != nil {
			logger.Debug("falling back to file watching", "error", err)
		} else {
			subscribed = true
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-signals:
						notify()
					}
				}
			}()
		}
	}

	// The file watcher also covers daemon restarts, when the bus signal
	// subscription has nothing to report.
	watcher, err := store.NewFileWatcher(config.SnapshotPath(), notify, logger)
	if err != nil {
		if !subscribed {
			return err
		}
		logger.Debug("snapshot file watcher unavailable", "error", err)
	} else if err := watcher.Start(); err != nil {
		if !subscribed {
			return err
		}
		logger.Debug("snapshot file watcher unavailable", "error", err)
	} else {
		defer func() { _ = watcher.Stop() }()
	}

	if err := printStatus(ctx, w, source, formatter); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := printStatus(ctx, w, source, formatter); err != nil {
				return err
			}
		}
	}
}

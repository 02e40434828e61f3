// Package main is the entry point for the traybadged daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"

	"github.com/jmylchreest/traybadge/internal/config"
	"github.com/jmylchreest/traybadge/internal/daemon"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	monitorMode := flag.Bool("monitor", false, "Run in monitor mode (observe another notification daemon instead of replacing it)")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/traybadge/config.toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("traybadged version", version)
		os.Exit(0)
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := daemon.LoadWithEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *monitorMode {
		cfg.Behavior.Mode = string(config.ModeMonitor)
	}
	if cfg.Behavior.Verbose {
		level.Set(slog.LevelDebug)
	}

	logger.Info("starting traybadged", "version", version, "mode", cfg.Behavior.Mode)

	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		ConfigPath: *configPath,
		Logger:     logger,
		Level:      level,
		Version:    version,
	})
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.Start(ctx); err != nil {
		logger.Error("failed to start daemon", "error", err)
		_ = d.Stop()
		os.Exit(1)
	}

	if sent, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
		logger.Warn("failed to notify systemd", "error", err)
	} else if sent {
		logger.Debug("notified systemd of readiness")
	}

	<-ctx.Done()
	logger.Info("received signal, shutting down")
	_, _ = sddaemon.SdNotify(false, sddaemon.SdNotifyStopping)

	if err := d.Stop(); err != nil {
		logger.Warn("error during shutdown", "error", err)
	}
}

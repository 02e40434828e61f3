package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/traybadge/internal/dbus"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Ask the daemon to recompute the badge",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := controlClient()
		if client == nil {
			return dbus.ErrDaemonNotRunning
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return client.Rescan(ctx)
	},
}

func init() {
	rootCmd.AddCommand(rescanCmd)
}

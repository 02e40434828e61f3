package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/traybadge/internal/adapter/output"
	"github.com/jmylchreest/traybadge/internal/dbus"
	"github.com/jmylchreest/traybadge/internal/tray"
)

var openOpts struct {
	snapshot  string
	separator string
}

var openCmd = &cobra.Command{
	Use:   "open <index|line|->",
	Short: "Activate an item of the badge",
	Long: `Activate the item at a 1-based index.

The argument may be a bare index, a line printed by "traybadge list", or
"-" to read that line from stdin. Activating an item opens its application
and acknowledges its notifications.

With --snapshot the activation is refused if the badge changed since that
snapshot was taken.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)

	openCmd.Flags().StringVar(&openOpts.snapshot, "snapshot", "",
		"Snapshot ID the index refers to (default: the current snapshot)")
	openCmd.Flags().StringVar(&openOpts.separator, "separator", " | ",
		"Separator used by the list output")
}

func runOpen(cmd *cobra.Command, args []string) error {
	line := args[0]
	if line == "-" {
		read, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && read == "" {
			return errors.New("no selection on stdin")
		}
		line = strings.TrimSpace(read)
	}
	if line == "" {
		// Launcher closed without a choice.
		return nil
	}

	index, err := output.ParseDmenuSelection(line, openOpts.separator)
	if err != nil {
		return err
	}

	client := controlClient()
	if client == nil {
		return dbus.ErrDaemonNotRunning
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	err = client.Activate(ctx, openOpts.snapshot, index)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tray.ErrStaleSnapshot):
		return fmt.Errorf("badge changed since the list was taken, list again: %w", err)
	case errors.Is(err, tray.ErrItemNotFound):
		return fmt.Errorf("no item at index %d: %w", index, err)
	default:
		return err
	}
}

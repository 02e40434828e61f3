package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/traybadge/internal/config"
	"github.com/jmylchreest/traybadge/internal/tui"
)

var menuOpts struct {
	source string
	open   bool
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Launch the terminal badge menu",
	Long: `Launch the terminal menu.

The badge is shown on the first line. The configured key (menu.keybinding,
"m" by default) opens and closes the item list.

Key bindings:
  m           Open/close the menu
  j/k, ↑/↓    Navigate items
  enter       Open the selected item
  esc         Close the menu
  r           Rescan
  ?           Show help
  q           Quit`,
	RunE: runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)

	menuCmd.Flags().StringVar(&menuOpts.source, "source", "",
		"Snapshot source (daemon, file; daemon with file fallback if empty)")
	menuCmd.Flags().BoolVar(&menuOpts.open, "open", false,
		"Start with the menu open")
}

func runMenu(cmd *cobra.Command, args []string) error {
	client := controlClient()
	source, err := snapshotSource(menuOpts.source, client)
	if err != nil {
		return err
	}

	var ctl tui.Controller
	if client != nil {
		ctl = client
	}

	return tui.Run(tui.RunOptions{
		Source:     source,
		Controller: ctl,
		Keybinding: cfg.Menu.Keybinding,
		WatchPath:  config.SnapshotPath(),
		Open:       menuOpts.open,
	})
}

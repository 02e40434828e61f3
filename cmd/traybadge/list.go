package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/traybadge/internal/adapter/output"
)

var listOpts struct {
	source    string
	format    string
	template  string
	separator string
	noIndex   bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the grouped items of the badge",
	Long: `List the items behind the badge.

The default dmenu format prints one "index | title (count)" line per item,
ready for fuzzel, rofi, walker or dmenu. Pipe the chosen line back into
"traybadge open -" to activate it:

  traybadge list | fuzzel -d | traybadge open -

Other formats: plain, waybar, json, yaml.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listOpts.source, "source", "",
		"Snapshot source (daemon, file, stdin; daemon with file fallback if empty)")
	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", string(output.FormatDmenu),
		"Output format (dmenu, plain, waybar, json, yaml)")
	listCmd.Flags().StringVar(&listOpts.template, "template", "",
		"Custom Go template for plain output")
	listCmd.Flags().StringVar(&listOpts.separator, "separator", " | ",
		"Separator between index and label in dmenu output")
	listCmd.Flags().BoolVar(&listOpts.noIndex, "no-index", false,
		"Omit the 1-based index")
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormatType(listOpts.format)
	if err != nil {
		return err
	}

	source, err := snapshotSource(listOpts.source, controlClient())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	snap, err := source.Snapshot(ctx)
	if err != nil {
		return err
	}
	logger.Debug("snapshot loaded", "source", source.Name(), "id", snap.ID, "items", len(snap.Items))

	opts := output.DefaultFormatterOptions()
	opts.Template = listOpts.template
	opts.Separator = listOpts.separator
	opts.ShowIndex = !listOpts.noIndex
	return output.NewFormatter(format, opts).Format(os.Stdout, snap)
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/luki/heatlog/internal/chart"
	"github.com/luki/heatlog/internal/sensor"
	"github.com/luki/heatlog/internal/viewer"
)

func newViewCmd(g *globals) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "view <dir>",
		Short: "Browse session tables interactively",
		Long: `View opens the CSV session tables in dir in a terminal browser.
Use [ and ] to move between sessions and h/l to scrub through time.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			if !cmd.Flags().Changed("name") {
				name = cfg.Output.Name
			}
			return viewer.Run(args[0], name, viewer.Options{
				Aliases: sensor.Aliases(cfg.Devices.Aliases),
				Thresh:  chart.NewThresholds(cfg.Chart.High, cfg.Chart.Crit),
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Only show tables of this output name")
	return cmd
}

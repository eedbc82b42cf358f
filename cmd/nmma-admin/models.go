package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skyportal/nmma-analysis/internal/bootstrap"
)

func newModelsCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models a submission may request",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			catalog, err := bootstrap.LoadCatalog(state.cfg.NMMA.ModelCatalog)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(state.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tGRID\tPLOT GRID")
			for _, spec := range catalog.Specs() {
				grid, plot := "-", "-"
				if spec.Grid != nil {
					grid = fmt.Sprintf("tmin=%g tmax=%g dt=%g", spec.Grid.Tmin, spec.Grid.Tmax, spec.Grid.Dt)
				}
				if spec.PlotGrid != nil {
					plot = fmt.Sprintf("%g:%g:%g", spec.PlotGrid.Start, spec.PlotGrid.Stop, spec.PlotGrid.Step)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Name, grid, plot)
			}
			return w.Flush()
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/hsmx/internal/primitives"
	"github.com/comalice/hsmx/internal/production"
)

func newDotCmd() *cobra.Command {
	var (
		mf      machineFlags
		active  bool
		events  []string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "dot <chart.yaml>",
		Short: "Render a chart as Graphviz DOT",
		Long: `Prints the state tree as a Graphviz digraph. With --active the machine is
initiated, the --events are processed, and the resulting active states are filled.
Pipe the output to "dot -Tsvg" to draw it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var viz production.DOTVisualizer

			if jsonOut {
				config, err := loadChart(args[0])
				if err != nil {
					return err
				}
				data, err := viz.ExportJSON(config)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if !active && len(events) == 0 {
				config, err := loadChart(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), viz.ExportDOT(config, nil))
				return nil
			}

			logger, err := loggerFor(cmd)
			if err != nil {
				return err
			}
			m, err := mf.newMachine(args[0], logger)
			if err != nil {
				return err
			}
			if err := m.Initiate(cmd.Context()); err != nil {
				return err
			}
			for _, name := range events {
				if _, err := m.ProcessEvent(cmd.Context(), primitives.NewEvent(name, nil)); err != nil {
					logger.Warn("event failed", "event", name, "error", err)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), viz.ExportDOT(m.Config(), m.ActiveStates()))
			return nil
		},
	}

	mf.register(cmd)
	cmd.Flags().BoolVar(&active, "active", false, "Highlight the initial active configuration")
	cmd.Flags().StringSliceVarP(&events, "events", "e", nil, "Events to process before rendering (implies --active)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the chart definition as JSON instead")
	return cmd
}

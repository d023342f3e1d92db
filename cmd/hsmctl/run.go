package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
	"github.com/comalice/hsmx/internal/production"
)

// runLine is one --json output record.
type runLine struct {
	Event   string       `json:"event"`
	Outcome core.Outcome `json:"outcome"`
	Active  []string     `json:"active"`
	Error   string       `json:"error,omitempty"`
}

func newRunCmd() *cobra.Command {
	var (
		mf          machineFlags
		events      []string
		snapshotDir string
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "run <chart.yaml>",
		Short: "Process a list of events and print each outcome",
		Long: `Builds a machine from the chart, initiates it (or resumes it from --snapshot-dir)
and processes the --events in order. After each event the outcome and active leaf
states are printed. A history inconsistency is reported and the run goes on; any
other error stops it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := loggerFor(cmd)
			if err != nil {
				return err
			}
			m, err := mf.newMachine(args[0], logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var persister *production.JSONPersister
			if snapshotDir != "" {
				if persister, err = production.NewJSONPersister(snapshotDir); err != nil {
					return err
				}
				snap, err := persister.Load(ctx, m.ID())
				switch {
				case err == nil:
					if err := m.Restore(snap); err != nil {
						return err
					}
				case !errors.Is(err, core.ErrNotFound):
					return err
				}
			}
			if m.Status() != core.StatusRunning {
				if err := m.Initiate(ctx); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "start -> %s\n", strings.Join(m.ActiveLeaves(), ","))
			}
			for _, name := range events {
				res, err := m.ProcessEvent(ctx, primitives.NewEvent(name, nil))
				if err != nil && !errors.Is(err, primitives.ErrHistoryInconsistency) {
					return fmt.Errorf("event %q: %w", name, err)
				}
				if jsonOut {
					line := runLine{Event: name, Outcome: res.Outcome, Active: m.ActiveLeaves()}
					if err != nil {
						line.Error = err.Error()
					}
					if err := enc.Encode(line); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", name, res.Outcome, strings.Join(m.ActiveLeaves(), ","))
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "  inconsistency: %v\n", err)
				}
			}

			if persister != nil {
				return persister.Save(ctx, m.Snapshot())
			}
			return nil
		},
	}

	mf.register(cmd)
	cmd.Flags().StringSliceVarP(&events, "events", "e", nil, "Comma-separated events to process in order")
	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "Resume from and save the snapshot to this directory")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print one JSON object per event")
	return cmd
}

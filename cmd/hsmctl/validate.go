package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/hsmx/internal/primitives"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <chart.yaml>",
		Short: "Check a chart document for structural errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadChart(args[0])
			if err != nil {
				var verr *primitives.ValidationError
				if errors.As(err, &verr) {
					for _, issue := range verr.Issues {
						cmd.PrintErrln(issue.String())
					}
					return fmt.Errorf("%s: %d issue(s)", args[0], len(verr.Issues))
				}
				return err
			}

			states := 0
			config.Walk(func(*primitives.StateConfig, []string) bool {
				states++
				return true
			})
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (machine %q, %d states)\n", args[0], config.ID, states)
			return nil
		},
	}
}

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/extensibility"
	"github.com/comalice/hsmx/internal/primitives"
	"github.com/comalice/hsmx/internal/production"
)

// machineFlags are shared by every command that builds a machine from a chart.
type machineFlags struct {
	instance string
	policy   string
	vars     []string
}

func (f *machineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.instance, "instance", "", "Machine instance ID (default: the chart ID)")
	cmd.Flags().StringVar(&f.policy, "policy", "report", "History inconsistency policy (report, abort)")
	cmd.Flags().StringSliceVar(&f.vars, "set", nil, "Initial extended state variables as key=value")
}

func parsePolicy(s string) (core.InconsistencyPolicy, error) {
	switch strings.ToLower(s) {
	case "", "report":
		return core.PolicyReport, nil
	case "abort":
		return core.PolicyAbort, nil
	}
	return core.PolicyReport, fmt.Errorf("unknown inconsistency policy %q", s)
}

func loadChart(path string) (primitives.MachineConfig, error) {
	return production.NewChartLoader().LoadFile(path)
}

// newMachine loads the chart at path and builds a machine that runs script actions and
// expression guards.
func (f *machineFlags) newMachine(path string, logger *slog.Logger, extra ...core.Option) (*core.Machine, error) {
	config, err := loadChart(path)
	if err != nil {
		return nil, err
	}
	policy, err := parsePolicy(f.policy)
	if err != nil {
		return nil, err
	}

	ext := primitives.NewExtendedState()
	for _, kv := range f.vars {
		key, raw, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: want key=value", kv)
		}
		ext.Set(key, scalar(raw))
	}

	id := f.instance
	if id == "" {
		id = config.ID
	}

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithInstanceID(id),
		core.WithExtendedState(ext),
		core.WithInconsistencyPolicy(policy),
		core.WithActionRunner(extensibility.NewLoggingActionRunner(scriptActions{logger: logger}, logger)),
		core.WithGuardEvaluator(extensibility.NewExpressionGuardEvaluator()),
	}
	return core.NewMachine(config, append(opts, extra...)...)
}

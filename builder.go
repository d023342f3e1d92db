package hsmx

import (
	"github.com/comalice/hsmx/internal/extensibility"
	"github.com/comalice/hsmx/internal/primitives"
	"github.com/comalice/hsmx/internal/production"
)

type (
	MachineBuilder = primitives.MachineBuilder
	StateBuilder   = primitives.StateBuilder
	ReactionOption = primitives.ReactionOption

	// Actions maps names used in chart documents to Go actions.
	Actions = extensibility.NamedActionRunner
	// Guards maps names used in chart documents to Go guards.
	Guards = extensibility.NamedGuardEvaluator
)

// NewMachineBuilder starts a fluent chart definition.
func NewMachineBuilder(id string) *MachineBuilder {
	return primitives.NewMachineBuilder(id)
}

// WithGuard attaches a guard to a reaction declared through a StateBuilder.
func WithGuard(g GuardRef) ReactionOption { return primitives.WithGuard(g) }

// WithActions attaches actions to a reaction declared through a StateBuilder.
func WithActions(actions ...ActionRef) ReactionOption { return primitives.WithActions(actions...) }

// NewActions creates an empty action registry. Pass it to WithActionRunner.
func NewActions() *Actions {
	return extensibility.NewNamedActionRunner()
}

// NewGuards creates a guard registry that evaluates unknown names as "key op value"
// expressions over the extended state. Pass it to WithGuardEvaluator.
func NewGuards() *Guards {
	return extensibility.NewNamedGuardEvaluator().WithFallback(extensibility.NewExpressionGuardEvaluator())
}

// ChartOptions configures LoadChart.
type ChartOptions struct {
	// Actions, when set, makes loading fail on action names it does not know.
	Actions *Actions
	// Handlers resolves `handler:` names of custom reactions.
	Handlers map[string]Handler
}

// LoadChart decodes and validates a YAML chart document.
func LoadChart(data []byte, opts ChartOptions) (MachineConfig, error) {
	return chartLoader(opts).Load(data)
}

// LoadChartFile is LoadChart reading from path.
func LoadChartFile(path string, opts ChartOptions) (MachineConfig, error) {
	return chartLoader(opts).LoadFile(path)
}

func chartLoader(opts ChartOptions) *production.ChartLoader {
	var lopts []production.LoaderOption
	if opts.Actions != nil {
		lopts = append(lopts, production.WithActionRegistry(opts.Actions))
	}
	for name, h := range opts.Handlers {
		lopts = append(lopts, production.WithHandler(name, h))
	}
	return production.NewChartLoader(lopts...)
}

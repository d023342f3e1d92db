package production

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/extensibility"
	"github.com/comalice/hsmx/internal/primitives"
)

const doorChart = `
id: door
version: "1"
states:
  - id: closed
    on:
      open: opened
      lock: locked
  - id: opened
    history: shallow
    entry: [count]
    on:
      close: closed
      knock: {kind: internal, actions: [count]}
    children:
      - id: ajar
        on: {push: wide}
      - id: wide
  - id: locked
    on:
      unlock: {target: opened, history: shallow}
      kick:
        - {target: closed, guard: "force > 3"}
        - {kind: discard}
`

func doorActions() *extensibility.NamedActionRunner {
	return extensibility.NewNamedActionRunner().
		Register("count", func(_ context.Context, ext *primitives.ExtendedState, _ primitives.Event) error {
			ext.Incr("count", 1)
			return nil
		})
}

func loadDoor(t *testing.T) primitives.MachineConfig {
	t.Helper()
	config, err := NewChartLoader(WithActionRegistry(doorActions())).Load([]byte(doorChart))
	require.NoError(t, err)
	return config
}

func newDoor(t *testing.T, opts ...core.Option) *core.Machine {
	t.Helper()
	opts = append([]core.Option{
		core.WithActionRunner(doorActions()),
		core.WithGuardEvaluator(extensibility.NewExpressionGuardEvaluator()),
	}, opts...)
	m, err := core.NewMachine(loadDoor(t), opts...)
	require.NoError(t, err)
	require.NoError(t, m.Initiate(context.Background()))
	return m
}

func send(t *testing.T, m *core.Machine, events ...string) {
	t.Helper()
	for _, e := range events {
		_, err := m.ProcessEvent(context.Background(), primitives.NewEvent(e, nil))
		require.NoError(t, err, e)
	}
}

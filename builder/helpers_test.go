package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsmx"
)

func TestNestedDeclaration(t *testing.T) {
	var log []string
	note := func(s string) hsmx.Action {
		return func(context.Context, *hsmx.ExtendedState, hsmx.Event) error {
			log = append(log, s)
			return nil
		}
	}

	chart := Machine("door",
		Atomic("closed",
			On("open", "opened", WithAction(note("creak"))),
			On("reopen", "opened", WithGuard("visits > 0")),
			OnHistory("back", "opened", hsmx.ShallowHistory),
			Defer("paint"),
		),
		Composite("opened",
			States(
				Atomic("ajar", On("push", "wide")),
				Atomic("wide", Internal("paint", WithAction(note("paint")))),
			),
			History(hsmx.ShallowHistory),
			OnEntry(note("enter:opened")),
			OnExit(note("exit:opened")),
			On("close", "closed"),
		),
	)
	require.NoError(t, chart.Validate())

	m, err := hsmx.NewMachine(chart)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, m.Initiate(ctx))

	for _, e := range []string{"open", "push", "close", "paint", "back"} {
		_, err := m.ProcessEvent(ctx, hsmx.NewEvent(e, nil))
		require.NoError(t, err, e)
	}
	assert.Equal(t, []string{"wide"}, m.ActiveLeaves())
	assert.Equal(t, []string{"creak", "enter:opened", "exit:opened", "enter:opened", "paint"}, log,
		"paint is deferred in closed and handled by wide after back")
}

func TestOrthogonalAndInitial(t *testing.T) {
	chart := Machine("panel",
		Orthogonal("on", States(
			Composite("left", States(Atomic("l1"), Atomic("l2")), Initial("l2")),
			Atomic("right"),
		)),
	)
	m, err := hsmx.NewMachine(chart)
	require.NoError(t, err)
	require.NoError(t, m.Initiate(context.Background()))
	assert.Equal(t, []string{"l2", "right"}, m.ActiveLeaves())
}

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsmx/internal/primitives"
)

// tracer records entry, exit and reaction actions in execution order.
type tracer struct {
	events []string
}

func (tr *tracer) action(label string) primitives.Action {
	return func(context.Context, *primitives.ExtendedState, primitives.Event) error {
		tr.events = append(tr.events, label)
		return nil
	}
}

// instrument adds "enter:ID" and "exit:ID" actions to every state below roots.
func (tr *tracer) instrument(roots ...*primitives.StateConfig) {
	for _, root := range roots {
		root.Walk(func(s *primitives.StateConfig, _ []string) bool {
			s.AddEntry(tr.action("enter:" + s.ID))
			s.AddExit(tr.action("exit:" + s.ID))
			return true
		})
	}
}

func (tr *tracer) take() []string {
	out := tr.events
	tr.events = nil
	return out
}

func machineOf(id string, states ...*primitives.StateConfig) primitives.MachineConfig {
	return primitives.MachineConfig{ID: id, States: states}
}

func newRunning(t *testing.T, config primitives.MachineConfig, opts ...Option) *Machine {
	t.Helper()
	m, err := NewMachine(config, opts...)
	require.NoError(t, err)
	require.NoError(t, m.Initiate(context.Background()))
	assertConsistent(t, m)
	return m
}

func send(t *testing.T, m *Machine, eventType string) Result {
	t.Helper()
	res, err := m.ProcessEvent(context.Background(), primitives.NewEvent(eventType, nil))
	require.NoError(t, err)
	assertConsistent(t, m)
	return res
}

// assertConsistent checks that every ancestor of an active leaf is active, that an active
// compound state has exactly one active child and an active orthogonal state has all of
// its regions active.
func assertConsistent(t *testing.T, m *Machine) {
	t.Helper()
	for _, id := range m.ActiveLeaves() {
		for _, anc := range m.tree.nodes[id].ancestors {
			assert.True(t, m.IsActive(anc.id), "ancestor %s of leaf %s inactive", anc.id, id)
		}
	}
	for _, n := range m.tree.order {
		if len(n.children) == 0 || !m.IsActive(n.id) {
			continue
		}
		active := 0
		for _, c := range n.children {
			if m.IsActive(c.id) {
				active++
			}
		}
		if n.typ == primitives.Orthogonal {
			assert.Equal(t, len(n.children), active, "regions of %s", n.id)
		} else {
			assert.Equal(t, 1, active, "active children of %s", n.id)
		}
	}
}

func inState(event string, actions ...primitives.ActionRef) primitives.ReactionConfig {
	return primitives.ReactionConfig{Event: event, Kind: primitives.ReactionInternal, Actions: actions}
}

package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsmx/internal/primitives"
)

// abConfig: R -> A(X, Y) with X the default child, plus an outer sibling B.
func abConfig(tr *tracer, history primitives.HistoryType) primitives.MachineConfig {
	a := primitives.NewStateConfig("A", primitives.Compound).WithHistory(history)
	a.State("X").On("toY", "Y")
	a.State("Y")
	a.On("leave", "B")
	b := primitives.NewStateConfig("B", primitives.Atomic).On("back", "A")
	if history.Allows(primitives.ShallowHistory) {
		b.OnHistory("backShallow", "A", primitives.ShallowHistory)
	}
	if history.Allows(primitives.DeepHistory) {
		b.OnHistory("backDeep", "A", primitives.DeepHistory)
	}
	if tr != nil {
		tr.instrument(a, b)
	}
	return machineOf("R", a, b)
}

func TestMachine_EndToEnd(t *testing.T) {
	prior := func(t *testing.T) (*Machine, *tracer) {
		tr := &tracer{}
		m := newRunning(t, abConfig(tr, primitives.FullHistory))
		assert.Equal(t, []string{"X"}, m.ActiveLeaves())
		assert.Equal(t, []string{"enter:A", "enter:X"}, tr.take())

		send(t, m, "toY")
		assert.Equal(t, []string{"Y"}, m.ActiveLeaves())
		assert.Equal(t, []string{"exit:X", "enter:Y"}, tr.take(), "intra-A transition must not exit A")

		send(t, m, "leave")
		assert.Equal(t, []string{"B"}, m.ActiveLeaves())
		assert.Equal(t, []string{"exit:Y", "exit:A", "enter:B"}, tr.take())
		return m, tr
	}

	tests := []struct {
		event string
		want  []string
	}{
		{"backDeep", []string{"Y"}},
		{"backShallow", []string{"Y"}},
		{"back", []string{"X"}},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			m, tr := prior(t)
			send(t, m, tt.event)
			assert.Equal(t, tt.want, m.ActiveLeaves())
			assert.True(t, m.IsActive("A"))
			assert.False(t, m.IsActive("B"))
			assert.Equal(t, append([]string{"exit:B", "enter:A"}, "enter:"+tt.want[0]), tr.take())
		})
	}
}

func TestMachine_SelfTransition(t *testing.T) {
	t.Run("leaf", func(t *testing.T) {
		tr := &tracer{}
		s := primitives.NewStateConfig("S", primitives.Atomic).On("self", "S")
		tr.instrument(s)
		m := newRunning(t, machineOf("m", s))
		tr.take()

		res := send(t, m, "self")
		assert.Equal(t, OutcomeConsumed, res.Outcome)
		assert.Equal(t, []string{"exit:S", "enter:S"}, tr.take())
		assert.Equal(t, []string{"S"}, m.ActiveLeaves())
	})

	t.Run("composite re-enters default child", func(t *testing.T) {
		tr := &tracer{}
		config := abConfig(tr, primitives.HistoryNone)
		config.States[0].On("again", "A")
		m := newRunning(t, config)
		send(t, m, "toY")
		tr.take()

		send(t, m, "again")
		assert.Equal(t, []string{"exit:Y", "exit:A", "enter:A", "enter:X"}, tr.take())
		assert.Equal(t, []string{"X"}, m.ActiveLeaves())
	})
}

func TestMachine_AncestorAndDescendantTargets(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *primitives.StateConfig)
		event string
		want  []string
		leafs []string
	}{
		{
			name:  "leaf to ancestor",
			setup: func(a *primitives.StateConfig) { a.Children[0].On("up", "A") },
			event: "up",
			want:  []string{"exit:X", "exit:A", "enter:A", "enter:X"},
			leafs: []string{"X"},
		},
		{
			name:  "composite to own child",
			setup: func(a *primitives.StateConfig) { a.On("down", "Y") },
			event: "down",
			want:  []string{"exit:X", "exit:A", "enter:A", "enter:Y"},
			leafs: []string{"Y"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &tracer{}
			config := abConfig(nil, primitives.HistoryNone)
			tt.setup(config.States[0])
			tr.instrument(config.States...)
			m := newRunning(t, config)
			tr.take()

			send(t, m, tt.event)
			assert.Equal(t, tt.want, tr.take())
			assert.Equal(t, tt.leafs, m.ActiveLeaves())
		})
	}
}

func TestMachine_ShallowHistoryRoundTrip(t *testing.T) {
	build := func() primitives.MachineConfig {
		c := primitives.NewStateConfig("C", primitives.Compound).WithHistory(primitives.ShallowHistory)
		c.State("X1")
		c.State("X2")
		p := c.State("P", primitives.Compound)
		p.State("P1").On("p2", "P2")
		p.State("P2")
		c.On("goX1", "X1").On("goX2", "X2").On("goP", "P").On("leave", "Out")
		out := primitives.NewStateConfig("Out", primitives.Atomic).
			OnHistory("back", "C", primitives.ShallowHistory).
			On("plain", "C")
		return machineOf("m", c, out)
	}

	tests := []struct {
		name string
		path []string
		want []string
	}{
		{"default child", nil, []string{"X1"}},
		{"second child", []string{"goX2"}, []string{"X2"}},
		{"first child again", []string{"goX2", "goX1"}, []string{"X1"}},
		{"composite child restores its default", []string{"goP", "p2"}, []string{"P1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRunning(t, build())
			for _, evt := range tt.path {
				send(t, m, evt)
			}
			send(t, m, "leave")
			send(t, m, "back")
			assert.Equal(t, tt.want, m.ActiveLeaves())

			send(t, m, "leave")
			send(t, m, "plain")
			assert.Equal(t, []string{"X1"}, m.ActiveLeaves())
		})
	}
}

// deepConfig: D(deep) -> O(orthogonal) -> R1(a1, a2), R2(b1, b2(b21, b22)).
func deepConfig() primitives.MachineConfig {
	d := primitives.NewStateConfig("D", primitives.Compound).WithHistory(primitives.DeepHistory)
	o := d.State("O", primitives.Orthogonal)
	r1 := o.State("R1", primitives.Compound)
	r1.State("a1").On("nextA", "a2")
	r1.State("a2")
	r2 := o.State("R2", primitives.Compound)
	r2.State("b1").On("nextB", "b2")
	b2 := r2.State("b2", primitives.Compound)
	b2.State("b21").On("deeper", "b22")
	b2.State("b22")
	d.On("out", "Out")
	out := primitives.NewStateConfig("Out", primitives.Atomic).
		OnHistory("deep", "D", primitives.DeepHistory).
		On("plain", "D")
	return machineOf("deep", d, out)
}

func TestMachine_DeepHistoryRoundTrip(t *testing.T) {
	m := newRunning(t, deepConfig())
	assert.Equal(t, []string{"a1", "b1"}, m.ActiveLeaves())

	res := send(t, m, "nextA")
	assert.Equal(t, []RegionOutcome{
		{Leaf: "a1", State: "a1", Outcome: OutcomeConsumed},
		{Leaf: "b1", Outcome: OutcomeNoMatch},
	}, res.Regions)
	send(t, m, "nextB")
	send(t, m, "deeper")
	assert.Equal(t, []string{"a2", "b22"}, m.ActiveLeaves())

	send(t, m, "out")
	assert.Equal(t, []string{"Out"}, m.ActiveLeaves())
	recorded, ok := m.history.Recorded("D", primitives.DeepHistory)
	require.True(t, ok)
	assert.Equal(t, []string{"a2", "b22"}, recorded)

	send(t, m, "deep")
	assert.Equal(t, []string{"a2", "b22"}, m.ActiveLeaves())

	send(t, m, "out")
	send(t, m, "plain")
	assert.Equal(t, []string{"a1", "b1"}, m.ActiveLeaves())
}

func TestMachine_ShallowHistoryOnOrthogonal(t *testing.T) {
	s := primitives.NewStateConfig("S", primitives.Orthogonal).WithHistory(primitives.ShallowHistory)
	r1 := s.State("R1", primitives.Compound)
	p := r1.State("p", primitives.Compound)
	p.State("p1").On("p2", "p2")
	p.State("p2")
	r1.State("q")
	r1.Children[0].On("toQ", "q")
	r2 := s.State("R2", primitives.Compound)
	r2.State("u").On("toV", "v")
	r2.State("v")
	s.On("leave", "Out")
	out := primitives.NewStateConfig("Out", primitives.Atomic).OnHistory("back", "S", primitives.ShallowHistory)

	m := newRunning(t, machineOf("m", s, out))
	send(t, m, "p2")
	send(t, m, "toV")
	assert.Equal(t, []string{"p2", "v"}, m.ActiveLeaves())

	send(t, m, "leave")
	send(t, m, "back")
	assert.Equal(t, []string{"p1", "v"}, m.ActiveLeaves())
}

func TestMachine_OrthogonalEntryExitOrder(t *testing.T) {
	tr := &tracer{}
	o := primitives.NewStateConfig("O", primitives.Orthogonal)
	o.State("R1", primitives.Compound).State("a")
	o.State("R2", primitives.Compound).State("b")
	o.On("stop", "Z")
	z := primitives.NewStateConfig("Z", primitives.Atomic)
	tr.instrument(o, z)

	m := newRunning(t, machineOf("m", o, z))
	assert.Equal(t, []string{"enter:O", "enter:R1", "enter:a", "enter:R2", "enter:b"}, tr.take())

	send(t, m, "stop")
	assert.Equal(t, []string{"exit:b", "exit:R2", "exit:a", "exit:R1", "exit:O", "enter:Z"}, tr.take())

	require.NoError(t, m.Terminate(context.Background()))
	assert.Equal(t, []string{"exit:Z"}, tr.take())
}

func TestMachine_DispatchOrder(t *testing.T) {
	t.Run("innermost wins", func(t *testing.T) {
		tr := &tracer{}
		config := abConfig(nil, primitives.HistoryNone)
		a := config.States[0]
		a.AddReaction(inState("ping", tr.action("A:ping")))
		a.Children[0].AddReaction(inState("ping", tr.action("X:ping")))
		m := newRunning(t, config)

		res := send(t, m, "ping")
		assert.Equal(t, []string{"X:ping"}, tr.take())
		assert.Equal(t, []RegionOutcome{{Leaf: "X", State: "X", Outcome: OutcomeConsumed}}, res.Regions)

		send(t, m, "toY")
		send(t, m, "ping")
		assert.Equal(t, []string{"A:ping"}, tr.take())
	})

	t.Run("sibling regions are independent", func(t *testing.T) {
		o := primitives.NewStateConfig("O", primitives.Orthogonal)
		o.State("R1", primitives.Compound).State("a").
			AddReaction(inState("e")).
			AddReaction(primitives.ReactionConfig{Event: "noise", Kind: primitives.ReactionDiscard})
		o.State("R2", primitives.Compound).State("b")
		m := newRunning(t, machineOf("m", o))

		res := send(t, m, "e")
		assert.Equal(t, OutcomeConsumed, res.Outcome)
		assert.Equal(t, []RegionOutcome{
			{Leaf: "a", State: "a", Outcome: OutcomeConsumed},
			{Leaf: "b", Outcome: OutcomeNoMatch},
		}, res.Regions)
		assert.Equal(t, []string{"a", "b"}, m.ActiveLeaves())

		res = send(t, m, "noise")
		assert.Equal(t, OutcomeDiscarded, res.Outcome)
		assert.Equal(t, OutcomeNoMatch, res.Regions[1].Outcome)

		res = send(t, m, "unknown")
		assert.Equal(t, OutcomeNoMatch, res.Outcome)
		assert.Len(t, res.Regions, 2)
	})

	t.Run("shared ancestor reacts once", func(t *testing.T) {
		o := primitives.NewStateConfig("O", primitives.Orthogonal)
		o.State("R1", primitives.Compound).State("a")
		o.State("R2", primitives.Compound).State("b")
		o.AddReaction(inState("tick", primitives.Action(func(_ context.Context, ext *primitives.ExtendedState, _ primitives.Event) error {
			ext.Incr("ticks", 1)
			return nil
		})))
		m := newRunning(t, machineOf("m", o))

		res := send(t, m, "tick")
		assert.Equal(t, 1, m.Ext().Int("ticks"))
		assert.Equal(t, []RegionOutcome{
			{Leaf: "a", State: "O", Outcome: OutcomeConsumed},
			{Leaf: "b", State: "O", Outcome: OutcomeConsumed},
		}, res.Regions)
	})

	t.Run("first passing guard fires", func(t *testing.T) {
		build := func() primitives.MachineConfig {
			s := primitives.NewStateConfig("S", primitives.Atomic).
				AddReaction(primitives.ReactionConfig{Event: "e", Target: "T1", Guard: primitives.Guard(
					func(_ context.Context, ext *primitives.ExtendedState, _ primitives.Event) bool {
						return ext.Int("n") > 0
					})}).
				On("e", "T2")
			return machineOf("m", s, primitives.NewStateConfig("T1", primitives.Atomic), primitives.NewStateConfig("T2", primitives.Atomic))
		}
		m := newRunning(t, build())
		send(t, m, "e")
		assert.Equal(t, []string{"T2"}, m.ActiveLeaves())

		ext := primitives.NewExtendedState()
		ext.Set("n", 1)
		m = newRunning(t, build(), WithExtendedState(ext))
		send(t, m, "e")
		assert.Equal(t, []string{"T1"}, m.ActiveLeaves())
	})

	t.Run("custom forward reaches outer state", func(t *testing.T) {
		tr := &tracer{}
		config := abConfig(nil, primitives.HistoryNone)
		config.States[0].AddReaction(inState("e", tr.action("A:e")))
		config.States[0].Children[0].OnCustom("e", func(context.Context, primitives.Reactor, primitives.Event) (primitives.Decision, error) {
			tr.events = append(tr.events, "X:forward")
			return primitives.Forward(), nil
		})
		m := newRunning(t, config)

		res := send(t, m, "e")
		assert.Equal(t, []string{"X:forward", "A:e"}, tr.take())
		assert.Equal(t, "A", res.Regions[0].State)
	})
}

func TestMachine_Deferral(t *testing.T) {
	deferTo := func(event string) primitives.ReactionConfig {
		return primitives.ReactionConfig{Event: event, Kind: primitives.ReactionDefer}
	}

	t.Run("released in order when the deferring state exits", func(t *testing.T) {
		busy := primitives.NewStateConfig("Busy", primitives.Compound)
		busy.State("Wait").AddReaction(deferTo("j1")).AddReaction(deferTo("j2")).On("ready", "Idle")
		idle := primitives.NewStateConfig("Idle", primitives.Atomic).On("j1", "I2")
		i2 := primitives.NewStateConfig("I2", primitives.Atomic).On("j2", "Done")
		done := primitives.NewStateConfig("Done", primitives.Atomic)
		m := newRunning(t, machineOf("m", busy, idle, i2, done))

		assert.Equal(t, OutcomeDeferred, send(t, m, "j1").Outcome)
		assert.Equal(t, OutcomeDeferred, send(t, m, "j2").Outcome)
		assert.Equal(t, []DeferredEvent{
			{Event: primitives.NewEvent("j1", nil), State: "Wait"},
			{Event: primitives.NewEvent("j2", nil), State: "Wait"},
		}, m.Deferred())

		res := send(t, m, "ready")
		assert.Equal(t, []string{"Done"}, m.ActiveLeaves())
		require.Len(t, res.Followups, 2)
		assert.Equal(t, "j1", res.Followups[0].Event.Type)
		assert.Empty(t, m.Deferred())
	})

	t.Run("redelivered only to the deferring region", func(t *testing.T) {
		o := primitives.NewStateConfig("O", primitives.Orthogonal)
		r1 := o.State("R1", primitives.Compound)
		r1.State("r1a").AddReaction(deferTo("e")).On("go", "r1b")
		r1.State("r1b").On("e", "r1c")
		r1.State("r1c")
		r2 := o.State("R2", primitives.Compound)
		r2.State("r2a").On("e", "r2b")
		r2.State("r2b").On("e", "r2c")
		r2.State("r2c")
		m := newRunning(t, machineOf("m", o))

		res := send(t, m, "e")
		assert.Equal(t, []RegionOutcome{
			{Leaf: "r1a", State: "r1a", Outcome: OutcomeDeferred},
			{Leaf: "r2a", State: "r2a", Outcome: OutcomeConsumed},
		}, res.Regions)
		assert.Equal(t, []string{"r1a", "r2b"}, m.ActiveLeaves())

		send(t, m, "go")
		assert.Equal(t, []string{"r1c", "r2b"}, m.ActiveLeaves())
	})

	t.Run("released by a self-transition", func(t *testing.T) {
		s := primitives.NewStateConfig("S", primitives.Atomic).AddReaction(deferTo("e")).On("self", "S")
		m := newRunning(t, machineOf("m", s))

		send(t, m, "e")
		res := send(t, m, "self")
		require.Len(t, res.Followups, 1)
		assert.Equal(t, OutcomeDeferred, res.Followups[0].Outcome, "S is active again and defers e anew")
		assert.Equal(t, []DeferredEvent{{Event: primitives.NewEvent("e", nil), State: "S"}}, m.Deferred())
	})

	t.Run("released when re-entered through an ancestor", func(t *testing.T) {
		ready := primitives.Guard(func(_ context.Context, ext *primitives.ExtendedState, _ primitives.Event) bool {
			_, ok := ext.Get("ready")
			return ok
		})
		notReady := primitives.Guard(func(ctx context.Context, ext *primitives.ExtendedState, evt primitives.Event) bool {
			return !ready(ctx, ext, evt)
		})
		arm := primitives.Action(func(_ context.Context, ext *primitives.ExtendedState, _ primitives.Event) error {
			ext.Set("ready", true)
			return nil
		})

		p := primitives.NewStateConfig("P", primitives.Compound)
		p.State("A").
			AddReaction(primitives.ReactionConfig{Event: "e", Kind: primitives.ReactionDefer, Guard: notReady}).
			AddReaction(primitives.ReactionConfig{Event: "e", Target: "Done", Guard: ready}).
			AddReaction(primitives.ReactionConfig{Event: "restart", Target: "P", Actions: []primitives.ActionRef{arm}})
		done := primitives.NewStateConfig("Done", primitives.Atomic)
		m := newRunning(t, machineOf("m", p, done))

		assert.Equal(t, OutcomeDeferred, send(t, m, "e").Outcome)
		res := send(t, m, "restart")
		require.Len(t, res.Followups, 1)
		assert.Equal(t, OutcomeConsumed, res.Followups[0].Outcome)
		assert.Equal(t, []string{"Done"}, m.ActiveLeaves())
		assert.Empty(t, m.Deferred())
	})
}

func TestMachine_PostAndStepLimit(t *testing.T) {
	config := abConfig(nil, primitives.HistoryNone)
	x := config.States[0].Children[0]
	x.OnCustom("kick", func(_ context.Context, r primitives.Reactor, _ primitives.Event) (primitives.Decision, error) {
		r.Post(primitives.NewEvent("toY", nil))
		return primitives.Consume(), nil
	})
	x.OnCustom("spin", func(_ context.Context, r primitives.Reactor, evt primitives.Event) (primitives.Decision, error) {
		r.Post(evt)
		return primitives.Consume(), nil
	})

	m := newRunning(t, config)
	res := send(t, m, "kick")
	assert.Equal(t, []string{"Y"}, m.ActiveLeaves())
	require.Len(t, res.Followups, 1)
	assert.Equal(t, OutcomeConsumed, res.Followups[0].Outcome)

	m = newRunning(t, config, WithStepLimit(5))
	_, err := m.ProcessEvent(context.Background(), primitives.NewEvent("spin", nil))
	assert.ErrorIs(t, err, ErrStepLimit)
}

func TestMachine_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m, err := NewMachine(abConfig(nil, primitives.DeepHistory), WithInstanceID("inst-1"))
	require.NoError(t, err)
	assert.Equal(t, "inst-1", m.ID())
	assert.Equal(t, StatusConstructed, m.Status())
	assert.Empty(t, m.ActiveLeaves())

	_, err = m.ProcessEvent(ctx, primitives.NewEvent("toY", nil))
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, m.Terminate(ctx), ErrNotRunning)

	require.NoError(t, m.Initiate(ctx))
	assert.ErrorIs(t, m.Initiate(ctx), ErrAlreadyRunning)

	send(t, m, "toY")
	send(t, m, "leave")
	_, ok := m.history.Recorded("A", primitives.DeepHistory)
	require.True(t, ok)

	require.NoError(t, m.Terminate(ctx))
	assert.Equal(t, StatusTerminated, m.Status())
	assert.Empty(t, m.ActiveLeaves())
	assert.False(t, m.IsActive("B"))
	_, err = m.ProcessEvent(ctx, primitives.NewEvent("back", nil))
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, m.Initiate(ctx))
	assert.Equal(t, []string{"X"}, m.ActiveLeaves())
	assert.Empty(t, m.History().Deep)

	active, err := m.CheckActive("X")
	require.NoError(t, err)
	assert.True(t, active)
	_, err = m.CheckActive("nope")
	assert.ErrorIs(t, err, ErrUnknownState)
	assert.False(t, m.IsActive("nope"))
	assert.Equal(t, []string{"A", "X"}, m.ActiveStates())
}

func TestMachine_TerminateReaction(t *testing.T) {
	tr := &tracer{}
	config := abConfig(tr, primitives.HistoryNone)
	config.States[0].Children[0].AddReaction(primitives.ReactionConfig{Event: "kill", Kind: primitives.ReactionTerminate})
	m := newRunning(t, config)
	tr.take()

	res := send(t, m, "kill")
	assert.Equal(t, OutcomeTerminated, res.Outcome)
	assert.Equal(t, StatusTerminated, m.Status())
	assert.Equal(t, []string{"exit:X", "exit:A"}, tr.take())
	assert.Empty(t, m.ActiveLeaves())
}

func TestNewMachine_StructuralErrors(t *testing.T) {
	o := primitives.NewStateConfig("O", primitives.Orthogonal)
	o.State("only")
	_, err := NewMachine(machineOf("m", o))
	require.Error(t, err)
	var verr *primitives.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.HasCode(primitives.ErrCodeTooFewRegions))

	_, err = NewMachine(machineOf("m", primitives.NewStateConfig("A", primitives.Atomic), primitives.NewStateConfig("A", primitives.Atomic)))
	assert.ErrorIs(t, err, primitives.ErrStructure)
}

func TestMachine_ConfigSealedAfterConstruction(t *testing.T) {
	config := abConfig(nil, primitives.HistoryNone)
	m := newRunning(t, config)
	version := m.Version()

	assert.PanicsWithError(t, `state config is sealed: state "A"`, func() { config.States[0].State("Z") })
	assert.PanicsWithError(t, `state config is sealed: state "X"`, func() { config.States[0].Children[0].On("toZ", "Z") })
	assert.PanicsWithError(t, `state config is sealed: state "B"`, func() {
		config.States[1].AddEntry("noop")
	})
	assert.True(t, config.States[0].Sealed())

	copied := m.Config()
	require.False(t, copied.States[0].Sealed())
	copied.States[0].State("Z")
	copied.States[0].Children[0].On("toZ", "Z")

	frozen := m.Config()
	ids := []string{}
	frozen.Walk(func(s *primitives.StateConfig, _ []string) bool {
		ids = append(ids, s.ID)
		return true
	})
	assert.Equal(t, []string{"A", "X", "Y", "B"}, ids)
	assert.Equal(t, version, primitives.ComputeVersion(&frozen))
	assert.Equal(t, version, m.Version())

	res := send(t, m, "toZ")
	assert.Equal(t, OutcomeNoMatch, res.Outcome)
	assert.Equal(t, []string{"X"}, m.ActiveLeaves())
}

func TestMachine_ActionErrors(t *testing.T) {
	boom := errors.New("boom")
	fail := primitives.Action(func(context.Context, *primitives.ExtendedState, primitives.Event) error { return boom })

	t.Run("entry", func(t *testing.T) {
		config := abConfig(nil, primitives.HistoryNone)
		config.States[0].Children[0].AddEntry(fail)
		m, err := NewMachine(config)
		require.NoError(t, err)
		err = m.Initiate(context.Background())
		var aerr *ActionError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, "X", aerr.State)
		assert.Equal(t, PhaseEntry, aerr.Phase)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("transition", func(t *testing.T) {
		config := abConfig(nil, primitives.HistoryNone)
		config.States[0].Children[0].AddReaction(primitives.ReactionConfig{Event: "bad", Target: "Y", Actions: []primitives.ActionRef{fail}})
		m := newRunning(t, config)
		_, err := m.ProcessEvent(context.Background(), primitives.NewEvent("bad", nil))
		var aerr *ActionError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, PhaseTransition, aerr.Phase)
	})

	t.Run("handler and unknown target", func(t *testing.T) {
		config := abConfig(nil, primitives.HistoryNone)
		x := config.States[0].Children[0]
		x.OnCustom("bad", func(context.Context, primitives.Reactor, primitives.Event) (primitives.Decision, error) {
			return primitives.Decision{}, boom
		})
		x.OnCustom("lost", func(context.Context, primitives.Reactor, primitives.Event) (primitives.Decision, error) {
			return primitives.Transit("nowhere"), nil
		})
		m := newRunning(t, config)

		_, err := m.ProcessEvent(context.Background(), primitives.NewEvent("bad", nil))
		var aerr *ActionError
		require.True(t, errors.As(err, &aerr))
		assert.Equal(t, PhaseReaction, aerr.Phase)

		_, err = m.ProcessEvent(context.Background(), primitives.NewEvent("lost", nil))
		assert.ErrorIs(t, err, ErrUnknownState)
	})

	t.Run("unregistered named action", func(t *testing.T) {
		config := abConfig(nil, primitives.HistoryNone)
		config.States[0].Children[0].AddReaction(inState("named", "doSomething"))
		m := newRunning(t, config)
		_, err := m.ProcessEvent(context.Background(), primitives.NewEvent("named", nil))
		assert.ErrorContains(t, err, "unregistered action")
	})
}

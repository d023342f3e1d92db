// Package primitives includes builder helpers for MachineConfig.
package primitives

// MachineBuilder builds a hierarchical MachineConfig fluently.
type MachineBuilder struct {
	config *MachineConfig
}

// NewMachineBuilder creates a new MachineBuilder. The first top-level state declared is
// entered by Initiate unless WithInitial names another.
func NewMachineBuilder(id string) *MachineBuilder {
	return &MachineBuilder{
		config: &MachineConfig{ID: id},
	}
}

// WithInitial names the top-level state entered by Initiate.
func (b *MachineBuilder) WithInitial(initial string) *MachineBuilder {
	b.config.Initial = initial
	return b
}

// Compound starts a top-level compound state.
func (b *MachineBuilder) Compound(id string) *StateBuilder {
	return b.top(NewStateConfig(id, Compound))
}

// Orthogonal starts a top-level orthogonal state.
func (b *MachineBuilder) Orthogonal(id string) *StateBuilder {
	return b.top(NewStateConfig(id, Orthogonal))
}

// Atomic starts a top-level atomic state.
func (b *MachineBuilder) Atomic(id string) *StateBuilder {
	return b.top(NewStateConfig(id, Atomic))
}

func (b *MachineBuilder) top(s *StateConfig) *StateBuilder {
	b.config.States = append(b.config.States, s)
	return &StateBuilder{state: s, mb: b}
}

// Build validates and returns the configuration.
func (b *MachineBuilder) Build() (MachineConfig, error) {
	if err := b.config.Validate(); err != nil {
		return MachineConfig{}, err
	}
	return *b.config, nil
}

// MustBuild is Build that panics on an invalid definition.
func (b *MachineBuilder) MustBuild() MachineConfig {
	config, err := b.Build()
	if err != nil {
		panic(err)
	}
	return config
}

// StateBuilder for fluent reactions and nesting.
type StateBuilder struct {
	state  *StateConfig
	parent *StateBuilder
	mb     *MachineBuilder
}

// Config returns the state being built.
func (sb *StateBuilder) Config() *StateConfig {
	return sb.state
}

// Compound nests a compound child.
func (sb *StateBuilder) Compound(id string) *StateBuilder {
	return sb.child(id, Compound)
}

// Orthogonal nests an orthogonal child.
func (sb *StateBuilder) Orthogonal(id string) *StateBuilder {
	return sb.child(id, Orthogonal)
}

// Atomic nests an atomic child.
func (sb *StateBuilder) Atomic(id string) *StateBuilder {
	return sb.child(id, Atomic)
}

func (sb *StateBuilder) child(id string, typ StateType) *StateBuilder {
	child := sb.state.State(id, typ)
	return &StateBuilder{state: child, parent: sb, mb: sb.mb}
}

// Up returns the builder of the enclosing state. At top level it returns sb.
func (sb *StateBuilder) Up() *StateBuilder {
	if sb.parent != nil {
		return sb.parent
	}
	return sb
}

// WithInitial sets the initial child.
func (sb *StateBuilder) WithInitial(initial string) *StateBuilder {
	sb.state.WithInitial(initial)
	return sb
}

// WithHistory declares the history kind.
func (sb *StateBuilder) WithHistory(h HistoryType) *StateBuilder {
	sb.state.WithHistory(h)
	return sb
}

// Entry appends entry actions.
func (sb *StateBuilder) Entry(actions ...ActionRef) *StateBuilder {
	for _, a := range actions {
		sb.state.AddEntry(a)
	}
	return sb
}

// Exit appends exit actions.
func (sb *StateBuilder) Exit(actions ...ActionRef) *StateBuilder {
	for _, a := range actions {
		sb.state.AddExit(a)
	}
	return sb
}

// ReactionOption customizes a reaction added through a StateBuilder.
type ReactionOption func(*ReactionConfig)

// WithGuard sets the reaction guard.
func WithGuard(g GuardRef) ReactionOption {
	return func(r *ReactionConfig) { r.Guard = g }
}

// WithActions appends transition actions.
func WithActions(actions ...ActionRef) ReactionOption {
	return func(r *ReactionConfig) { r.Actions = append(r.Actions, actions...) }
}

func (sb *StateBuilder) react(r ReactionConfig, opts []ReactionOption) *StateBuilder {
	for _, opt := range opts {
		opt(&r)
	}
	sb.state.AddReaction(r)
	return sb
}

// On adds a transition to target.
func (sb *StateBuilder) On(event, target string, opts ...ReactionOption) *StateBuilder {
	return sb.react(ReactionConfig{Event: event, Kind: ReactionTransition, Target: target}, opts)
}

// OnHistory adds a transition that restores target's history of kind.
func (sb *StateBuilder) OnHistory(event, target string, kind HistoryType, opts ...ReactionOption) *StateBuilder {
	return sb.react(ReactionConfig{Event: event, Kind: ReactionTransition, Target: target, History: kind}, opts)
}

// OnInternal adds an in-state reaction: actions run, no exit or entry.
func (sb *StateBuilder) OnInternal(event string, opts ...ReactionOption) *StateBuilder {
	return sb.react(ReactionConfig{Event: event, Kind: ReactionInternal}, opts)
}

// Discard adds an explicit discard reaction.
func (sb *StateBuilder) Discard(event string, opts ...ReactionOption) *StateBuilder {
	return sb.react(ReactionConfig{Event: event, Kind: ReactionDiscard}, opts)
}

// Defer adds a defer reaction.
func (sb *StateBuilder) Defer(event string, opts ...ReactionOption) *StateBuilder {
	return sb.react(ReactionConfig{Event: event, Kind: ReactionDefer}, opts)
}

// OnCustom adds a custom reaction.
func (sb *StateBuilder) OnCustom(event string, h Handler, opts ...ReactionOption) *StateBuilder {
	return sb.react(ReactionConfig{Event: event, Kind: ReactionCustom, Handler: h}, opts)
}

// OnTerminate adds a reaction that terminates the machine.
func (sb *StateBuilder) OnTerminate(event string, opts ...ReactionOption) *StateBuilder {
	return sb.react(ReactionConfig{Event: event, Kind: ReactionTerminate}, opts)
}

// Package builder declares charts as nested constructor calls, an alternative to the
// fluent hsmx.MachineBuilder when the tree shape should be visible in the source:
//
//	chart := builder.Machine("door",
//		builder.Atomic("closed", builder.On("open", "opened")),
//		builder.Composite("opened", builder.States(
//			builder.Atomic("ajar"),
//			builder.Atomic("wide"),
//		), builder.History(hsmx.ShallowHistory), builder.On("close", "closed")),
//	)
package builder

import (
	"github.com/comalice/hsmx"
)

// Option configures a state.
type Option func(*hsmx.StateConfig)

// Machine assembles top-level states into a chart. The first state is initial.
func Machine(id string, states ...*hsmx.StateConfig) hsmx.MachineConfig {
	return hsmx.MachineConfig{ID: id, States: states}
}

// Atomic creates a leaf state.
func Atomic(id string, opts ...Option) *hsmx.StateConfig {
	return state(id, hsmx.Atomic, opts)
}

// Composite creates a compound state. Add children with States; the first child is
// initial unless Initial says otherwise.
func Composite(id string, opts ...Option) *hsmx.StateConfig {
	return state(id, hsmx.Compound, opts)
}

// Orthogonal creates a state whose children are regions, all active at once.
func Orthogonal(id string, opts ...Option) *hsmx.StateConfig {
	return state(id, hsmx.Orthogonal, opts)
}

func state(id string, typ hsmx.StateType, opts []Option) *hsmx.StateConfig {
	s := hsmx.StateConfig{ID: id, Type: typ}
	for _, opt := range opts {
		opt(&s)
	}
	return &s
}

// States appends children in declaration order.
func States(children ...*hsmx.StateConfig) Option {
	return func(s *hsmx.StateConfig) {
		for _, c := range children {
			s.AddChild(c)
		}
	}
}

// Initial names the default child.
func Initial(id string) Option {
	return func(s *hsmx.StateConfig) { s.WithInitial(id) }
}

// History declares the history the state keeps.
func History(h hsmx.HistoryType) Option {
	return func(s *hsmx.StateConfig) { s.WithHistory(h) }
}

// OnEntry adds an action that executes when the state is entered.
func OnEntry(act hsmx.ActionRef) Option {
	return func(s *hsmx.StateConfig) { s.AddEntry(act) }
}

// OnExit adds an action that executes when the state is exited.
func OnExit(act hsmx.ActionRef) Option {
	return func(s *hsmx.StateConfig) { s.AddExit(act) }
}

// On adds a transition to target.
func On(event, target string, opts ...ReactionOption) Option {
	return react(hsmx.ReactionConfig{Event: event, Target: target}, opts)
}

// OnHistory adds a transition that restores target's history of the given kind.
func OnHistory(event, target string, kind hsmx.HistoryType, opts ...ReactionOption) Option {
	return react(hsmx.ReactionConfig{Event: event, Target: target, History: kind}, opts)
}

// Internal adds an in-state reaction: actions run, nothing is exited or entered.
func Internal(event string, opts ...ReactionOption) Option {
	return react(hsmx.ReactionConfig{Event: event, Kind: hsmx.ReactionInternal}, opts)
}

// Defer postpones event until the state is left.
func Defer(event string) Option {
	return react(hsmx.ReactionConfig{Event: event, Kind: hsmx.ReactionDefer}, nil)
}

// Custom lets h decide what event does.
func Custom(event string, h hsmx.Handler) Option {
	return react(hsmx.ReactionConfig{Event: event, Kind: hsmx.ReactionCustom, Handler: h}, nil)
}

func react(r hsmx.ReactionConfig, opts []ReactionOption) Option {
	for _, opt := range opts {
		opt(&r)
	}
	return func(s *hsmx.StateConfig) { s.AddReaction(r) }
}

// ReactionOption configures a reaction.
type ReactionOption func(*hsmx.ReactionConfig)

// WithGuard sets the reaction's guard.
func WithGuard(g hsmx.GuardRef) ReactionOption {
	return func(r *hsmx.ReactionConfig) { r.Guard = g }
}

// WithAction appends an action to the reaction.
func WithAction(act hsmx.ActionRef) ReactionOption {
	return func(r *hsmx.ReactionConfig) { r.Actions = append(r.Actions, act) }
}

// Package primitives defines the foundational data structures for the state machine.
//
// ReactionConfig binds an event type to the behavior a state exposes for it. Reactions are
// looked up at dispatch time through a (state, event type) registry built by the runtime.
// When several reactions of one state match an event, the first one (declaration order)
// whose guard passes fires.
package primitives

import (
	"context"
	"fmt"
	"strings"
)

// ActionRef references an action: an Action (or a func with the same signature) or a
// string name resolved by an ActionRunner.
type ActionRef any

// GuardRef references a guard: a Guard (or a func with the same signature) or a string
// resolved by a GuardEvaluator.
type GuardRef any

// Action is a side effect run on entry, exit, or while taking a reaction.
type Action func(ctx context.Context, ext *ExtendedState, evt Event) error

// Guard decides whether a reaction may fire.
type Guard func(ctx context.Context, ext *ExtendedState, evt Event) bool

// ReactionKind is what a reaction does when it fires.
type ReactionKind string

const (
	ReactionTransition ReactionKind = "transition"
	// ReactionInternal runs its actions without leaving the state.
	ReactionInternal  ReactionKind = "internal"
	ReactionDiscard   ReactionKind = "discard"
	ReactionDefer     ReactionKind = "defer"
	ReactionCustom    ReactionKind = "custom"
	ReactionTerminate ReactionKind = "terminate"
	// ReactionForward is only produced by custom handlers: keep searching outer states.
	ReactionForward ReactionKind = "forward"
)

// Reactor is the view of the running machine given to custom handlers.
type Reactor interface {
	// State is the ID of the state whose reaction is running.
	State() string
	IsActive(id string) bool
	Ext() *ExtendedState
	// Post queues evt for processing after the current event completes.
	Post(evt Event)
	// ClearShallowHistory drops recorded shallow history of state id. It fails with a
	// *HistoryInconsistencyError when id does not declare shallow history.
	ClearShallowHistory(id string) error
	// ClearDeepHistory is ClearShallowHistory for deep history.
	ClearDeepHistory(id string) error
}

// Handler implements a custom reaction.
type Handler func(ctx context.Context, r Reactor, evt Event) (Decision, error)

// Decision is the outcome a custom handler picks.
type Decision struct {
	Kind    ReactionKind
	Target  string
	History HistoryType
}

// Transit leaves for target, entering its default initial configuration.
func Transit(target string) Decision {
	return Decision{Kind: ReactionTransition, Target: target}
}

// TransitHistory leaves for target and restores its recorded history of kind.
func TransitHistory(target string, kind HistoryType) Decision {
	return Decision{Kind: ReactionTransition, Target: target, History: kind}
}

// Consume marks the event handled without changing state.
func Consume() Decision { return Decision{Kind: ReactionInternal} }

// Discard drops the event explicitly.
func Discard() Decision { return Decision{Kind: ReactionDiscard} }

// Defer postpones the event until the deferring state is exited.
func Defer() Decision { return Decision{Kind: ReactionDefer} }

// Forward passes the event on to the enclosing states.
func Forward() Decision { return Decision{Kind: ReactionForward} }

// Terminate stops the machine.
func Terminate() Decision { return Decision{Kind: ReactionTerminate} }

// ReactionConfig declares how a state reacts to one event type.
type ReactionConfig struct {
	Event   string       `json:"event" yaml:"event"`
	Kind    ReactionKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Target  string       `json:"target,omitempty" yaml:"target,omitempty"`
	History HistoryType  `json:"history,omitempty" yaml:"history,omitempty"`
	Guard   GuardRef     `json:"-" yaml:"-"`
	Actions []ActionRef  `json:"-" yaml:"-"`
	Handler Handler      `json:"-" yaml:"-"`
}

// EffectiveKind resolves an empty Kind: transition when a Target is set, internal otherwise.
func (r *ReactionConfig) EffectiveKind() ReactionKind {
	if r.Kind != "" {
		return r.Kind
	}
	if r.Target != "" {
		return ReactionTransition
	}
	return ReactionInternal
}

// Decision returns the fixed decision of a non-custom reaction.
func (r *ReactionConfig) Decision() Decision {
	return Decision{Kind: r.EffectiveKind(), Target: r.Target, History: r.History}
}

// validate checks the reaction on its own; targets are resolved by MachineConfig.
func (r *ReactionConfig) validate(errs *ValidationError, path []string) {
	if strings.TrimSpace(r.Event) == "" {
		errs.AddIssue(ErrCodeEmptyEvent, "reaction has an empty event type", path...)
	}
	if !r.History.Valid() {
		errs.AddIssue(ErrCodeInvalidHistory, fmt.Sprintf("unknown history kind %q", string(r.History)), path...)
	}
	if r.History == FullHistory {
		errs.AddIssue(ErrCodeInvalidHistory, "a transition requests shallow or deep history, not full", path...)
	}

	switch kind := r.EffectiveKind(); kind {
	case ReactionTransition:
		if r.Target == "" {
			errs.AddIssue(ErrCodeMissingTarget, "transition has no target", path...)
		}
	case ReactionCustom:
		if r.Handler == nil {
			errs.AddIssue(ErrCodeMissingHandler, "custom reaction has no handler", path...)
		}
	case ReactionInternal, ReactionDiscard, ReactionDefer, ReactionTerminate:
		if r.Target != "" || r.History != HistoryNone {
			errs.AddIssue(ErrCodeInvalidReaction, fmt.Sprintf("%s reaction cannot have a target", kind), path...)
		}
	default:
		errs.AddIssue(ErrCodeInvalidReaction, fmt.Sprintf("unknown reaction kind %q", string(kind)), path...)
	}
}

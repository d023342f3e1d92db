// Package primitives defines the foundational data structures for the state machine.
//
// StateConfig is the descriptor of one state: its identity, children in declaration order,
// the declared history kind and the reactions it handles.
package primitives

import (
	"fmt"
	"slices"
)

// StateType defines the possible kinds of states.
type StateType string

const (
	Atomic   StateType = "atomic"
	Compound StateType = "compound"
	// Orthogonal states own two or more regions (their children) that are all active at once.
	Orthogonal StateType = "orthogonal"
)

// StateConfig describes a state and, through Children, its sub-tree.
type StateConfig struct {
	ID        string           `json:"id" yaml:"id"`
	Type      StateType        `json:"type,omitempty" yaml:"type,omitempty"`
	Initial   string           `json:"initial,omitempty" yaml:"initial,omitempty"` // empty means first child
	History   HistoryType      `json:"history,omitempty" yaml:"history,omitempty"`
	Reactions []ReactionConfig `json:"on,omitempty" yaml:"on,omitempty"`
	Entry     []ActionRef      `json:"-" yaml:"-"`
	Exit      []ActionRef      `json:"-" yaml:"-"`
	Children  []*StateConfig   `json:"children,omitempty" yaml:"children,omitempty"`

	sealed bool
}

// NewStateConfig creates a new StateConfig with ID and Type.
func NewStateConfig(id string, typ StateType) *StateConfig {
	return &StateConfig{
		ID:   id,
		Type: typ,
	}
}

// EffectiveType resolves an empty Type from the children.
func (s *StateConfig) EffectiveType() StateType {
	if s.Type != "" {
		return s.Type
	}
	if len(s.Children) > 0 {
		return Compound
	}
	return Atomic
}

// InitialChild returns the default initial child: the declared Initial, else the first child.
func (s *StateConfig) InitialChild() *StateConfig {
	if len(s.Children) == 0 {
		return nil
	}
	if s.Initial == "" {
		return s.Children[0]
	}
	for _, child := range s.Children {
		if child.ID == s.Initial {
			return child
		}
	}
	return nil
}

// WithInitial sets the initial child state ID.
func (s *StateConfig) WithInitial(initial string) *StateConfig {
	s.mutable()
	s.Initial = initial
	return s
}

// WithHistory declares the history kind recorded when the state is exited.
func (s *StateConfig) WithHistory(h HistoryType) *StateConfig {
	s.mutable()
	s.History = h
	return s
}

// WithChildren sets child states.
func (s *StateConfig) WithChildren(children []*StateConfig) *StateConfig {
	s.mutable()
	s.Children = children
	return s
}

// AddChild appends a child state.
func (s *StateConfig) AddChild(child *StateConfig) *StateConfig {
	s.mutable()
	s.Children = append(s.Children, child)
	return s
}

// State creates and adds a child state (atomic by default, or specified type).
// Returns the child for chaining: parent.State("child").On("evt", "target").
func (s *StateConfig) State(id string, typ ...StateType) *StateConfig {
	t := Atomic
	if len(typ) > 0 {
		t = typ[0]
	}
	child := NewStateConfig(id, t)
	s.AddChild(child)
	return child
}

// AddReaction appends a reaction.
func (s *StateConfig) AddReaction(r ReactionConfig) *StateConfig {
	s.mutable()
	s.Reactions = append(s.Reactions, r)
	return s
}

// On adds a transition to target on event.
func (s *StateConfig) On(event, target string) *StateConfig {
	return s.AddReaction(ReactionConfig{Event: event, Kind: ReactionTransition, Target: target})
}

// OnHistory adds a transition to target that restores target's history of kind.
func (s *StateConfig) OnHistory(event, target string, kind HistoryType) *StateConfig {
	return s.AddReaction(ReactionConfig{Event: event, Kind: ReactionTransition, Target: target, History: kind})
}

// OnCustom adds a custom reaction.
func (s *StateConfig) OnCustom(event string, h Handler) *StateConfig {
	return s.AddReaction(ReactionConfig{Event: event, Kind: ReactionCustom, Handler: h})
}

// AddEntry adds an entry action.
func (s *StateConfig) AddEntry(action ActionRef) *StateConfig {
	s.mutable()
	s.Entry = append(s.Entry, action)
	return s
}

// AddExit adds an exit action.
func (s *StateConfig) AddExit(action ActionRef) *StateConfig {
	s.mutable()
	s.Exit = append(s.Exit, action)
	return s
}

// Sealed reports whether s belongs to a constructed machine and can no longer be edited.
func (s *StateConfig) Sealed() bool { return s.sealed }

func (s *StateConfig) mutable() {
	if s.sealed {
		panic(fmt.Errorf("%w: state %q", ErrSealed, s.ID))
	}
}

// Clone returns an unsealed deep copy of s and its sub-tree. Action and handler values are
// shared.
func (s *StateConfig) Clone() *StateConfig {
	c := *s
	c.sealed = false
	c.Entry = slices.Clone(s.Entry)
	c.Exit = slices.Clone(s.Exit)
	if s.Reactions != nil {
		c.Reactions = make([]ReactionConfig, len(s.Reactions))
		for i, r := range s.Reactions {
			r.Actions = slices.Clone(r.Actions)
			c.Reactions[i] = r
		}
	}
	if s.Children != nil {
		c.Children = make([]*StateConfig, len(s.Children))
		for i, child := range s.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

func (s *StateConfig) seal() {
	s.sealed = true
	for _, child := range s.Children {
		child.seal()
	}
}

// Walk visits s and its descendants depth-first in declaration order. Returning false from
// fn skips the sub-tree below that state.
func (s *StateConfig) Walk(fn func(state *StateConfig, path []string) bool) {
	s.walk(nil, fn)
}

func (s *StateConfig) walk(parent []string, fn func(*StateConfig, []string) bool) {
	path := append(slices.Clip(parent), s.ID)
	if !fn(s, path) {
		return
	}
	for _, child := range s.Children {
		child.walk(path, fn)
	}
}

// Validate performs the local structural checks of s and its descendants. Cross-references
// (transition targets, unique IDs) are checked by MachineConfig.Validate.
func (s *StateConfig) Validate() error {
	errs := &ValidationError{}
	s.Walk(func(state *StateConfig, path []string) bool {
		state.validateLocal(errs, path)
		return true
	})
	if errs.HasIssues() {
		return errs
	}
	return nil
}

func (s *StateConfig) validateLocal(errs *ValidationError, path []string) {
	if s.ID == "" {
		errs.AddIssue(ErrCodeMissingID, "state ID is required", path...)
	}
	if !s.History.Valid() {
		errs.AddIssue(ErrCodeInvalidHistory, fmt.Sprintf("unknown history kind %q", string(s.History)), path...)
	}

	switch typ := s.EffectiveType(); typ {
	case Atomic:
		if len(s.Children) > 0 {
			errs.AddIssue(ErrCodeAtomicChildren, fmt.Sprintf("atomic state %s cannot have children", s.ID), path...)
		}
		if s.Initial != "" {
			errs.AddIssue(ErrCodeInitialNotFound, fmt.Sprintf("atomic state %s cannot have an initial child", s.ID), path...)
		}
		if s.History != HistoryNone {
			errs.AddIssue(ErrCodeHistoryOnAtomic, fmt.Sprintf("atomic state %s cannot declare %s history", s.ID, s.History), path...)
		}
	case Compound:
		if len(s.Children) == 0 {
			errs.AddIssue(ErrCodeMissingInitial, fmt.Sprintf("compound state %s has no children to enter", s.ID), path...)
		} else if s.InitialChild() == nil {
			errs.AddIssue(ErrCodeInitialNotFound, fmt.Sprintf("initial child %q not found in children of %s", s.Initial, s.ID), path...)
		}
	case Orthogonal:
		if len(s.Children) < 2 {
			errs.AddIssue(ErrCodeTooFewRegions, fmt.Sprintf("orthogonal state %s needs at least 2 regions, has %d", s.ID, len(s.Children)), path...)
		}
		if s.Initial != "" {
			errs.AddIssue(ErrCodeInitialNotFound, fmt.Sprintf("orthogonal state %s enters all regions and cannot name an initial child", s.ID), path...)
		}
	default:
		errs.AddIssue(ErrCodeInvalidType, fmt.Sprintf("invalid state type %q for state %s", typ, s.ID), path...)
	}

	for i, r := range s.Reactions {
		r.validate(errs, append(slices.Clip(path), "on", r.Event, fmt.Sprint(i)))
	}
}

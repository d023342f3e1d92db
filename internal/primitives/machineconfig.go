// Package primitives defines the foundational data structures for the state machine.
//
// MachineConfig is the complete definition of a machine: its top-level states (children of
// an implicit machine root) in declaration order. Validate is the registration-time checker:
// it reports structural errors and history-targeted transitions whose requested kind the
// target state does not declare.
package primitives

import (
	"errors"
	"fmt"
	"slices"
)

// MachineConfig defines the complete state tree.
type MachineConfig struct {
	Version string         `json:"version,omitempty" yaml:"version,omitempty"`
	ID      string         `json:"id" yaml:"id"`
	Initial string         `json:"initial,omitempty" yaml:"initial,omitempty"` // empty means first state
	States  []*StateConfig `json:"states" yaml:"states"`
}

// InitialState returns the top-level state entered by Initiate.
func (m *MachineConfig) InitialState() *StateConfig {
	if len(m.States) == 0 {
		return nil
	}
	if m.Initial == "" {
		return m.States[0]
	}
	for _, s := range m.States {
		if s.ID == m.Initial {
			return s
		}
	}
	return nil
}

// Clone returns a deep, unsealed copy of m.
func (m *MachineConfig) Clone() MachineConfig {
	c := *m
	if m.States != nil {
		c.States = make([]*StateConfig, len(m.States))
		for i, s := range m.States {
			c.States[i] = s.Clone()
		}
	}
	return c
}

// Seal marks every state of m read-only. Editing a sealed state through its builder methods
// panics with an error wrapping ErrSealed.
func (m *MachineConfig) Seal() {
	for _, s := range m.States {
		s.seal()
	}
}

// Walk visits every state in declaration order.
func (m *MachineConfig) Walk(fn func(state *StateConfig, path []string) bool) {
	for _, s := range m.States {
		s.Walk(fn)
	}
}

// Index returns every state by ID. Duplicates keep the first declaration.
func (m *MachineConfig) Index() map[string]*StateConfig {
	index := make(map[string]*StateConfig)
	m.Walk(func(s *StateConfig, _ []string) bool {
		if _, dup := index[s.ID]; !dup {
			index[s.ID] = s
		}
		return true
	})
	return index
}

// FindState resolves a state by ID anywhere in the tree.
func (m *MachineConfig) FindState(id string) (*StateConfig, error) {
	if id == "" {
		return nil, errors.New("state ID cannot be empty")
	}
	if s, ok := m.Index()[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("state %q not found", id)
}

// Validate checks the whole definition. It returns a *ValidationError listing every issue,
// or nil.
func (m *MachineConfig) Validate() error {
	errs := &ValidationError{}

	if len(m.States) == 0 {
		errs.AddIssue(ErrCodeNoStates, "at least one state is required")
		return errs
	}
	if m.InitialState() == nil {
		errs.AddIssue(ErrCodeInitialNotFound, fmt.Sprintf("initial state %q is not a top-level state", m.Initial))
	}

	seen := make(map[string][]string)
	m.Walk(func(s *StateConfig, path []string) bool {
		s.validateLocal(errs, path)
		if s.ID == "" {
			return true
		}
		if first, dup := seen[s.ID]; dup {
			errs.AddIssue(ErrCodeDuplicateState, fmt.Sprintf("state %q is already declared at %v", s.ID, first), path...)
		} else {
			seen[s.ID] = path
		}
		return true
	})

	index := m.Index()
	m.Walk(func(s *StateConfig, path []string) bool {
		for i, r := range s.Reactions {
			if r.EffectiveKind() != ReactionTransition || r.Target == "" {
				continue
			}
			rpath := append(slices.Clip(path), "on", r.Event, fmt.Sprint(i))
			target, ok := index[r.Target]
			if !ok {
				errs.AddIssue(ErrCodeInvalidTarget, fmt.Sprintf("transition target %q not found", r.Target), rpath...)
				continue
			}
			if r.History == HistoryNone || !r.History.Valid() || r.History == FullHistory {
				continue
			}
			if err := CheckHistory(target.ID, OpRestore, r.History, target.History); err != nil {
				errs.AddError(ErrCodeHistoryInconsistent, err, rpath...)
			}
		}
		return true
	})

	if errs.HasIssues() {
		return errs
	}
	return nil
}

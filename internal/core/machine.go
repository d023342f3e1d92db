// Package core provides the runtime of the statechart engine: the Machine, event dispatch,
// transition execution and history management.
//
// A Machine holds no locks. It expects exclusive, sequential access; share one between
// goroutines through a Runner.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/comalice/hsmx/internal/logging"
	"github.com/comalice/hsmx/internal/primitives"
)

// Event types the runtime passes to entry and exit actions that do not run on behalf of a
// dispatched event.
const (
	EventInitiate  = "hsmx.initiate"
	EventTerminate = "hsmx.terminate"
)

const defaultStepLimit = 10000

// ErrStepLimit is returned when posted or released events keep a ProcessEvent call busy
// beyond the configured step limit.
var ErrStepLimit = errors.New("run-to-completion step limit exceeded")

// ActionRunner executes action references.
type ActionRunner interface {
	Run(ctx context.Context, ext *primitives.ExtendedState, action primitives.ActionRef, evt primitives.Event) error
}

// GuardEvaluator evaluates guard references.
type GuardEvaluator interface {
	Eval(ctx context.Context, ext *primitives.ExtendedState, guard primitives.GuardRef, evt primitives.Event) bool
}

// Option applies configuration to Machine via functional options pattern.
type Option func(*Machine)

// Status is the machine lifecycle state.
type Status string

const (
	StatusConstructed Status = "constructed"
	StatusRunning     Status = "running"
	StatusTerminated  Status = "terminated"
)

// Outcome is what happened to an event in one region.
type Outcome string

const (
	// OutcomeNoMatch means no active state reacted.
	OutcomeNoMatch    Outcome = "no_match"
	OutcomeDiscarded  Outcome = "discarded"
	OutcomeDeferred   Outcome = "deferred"
	OutcomeConsumed   Outcome = "consumed"
	OutcomeTerminated Outcome = "terminated"
)

func (o Outcome) rank() int {
	switch o {
	case OutcomeDiscarded:
		return 1
	case OutcomeDeferred:
		return 2
	case OutcomeConsumed:
		return 3
	case OutcomeTerminated:
		return 4
	}
	return 0
}

// RegionOutcome is the dispatch result for one active leaf. State is the state that
// reacted, empty on OutcomeNoMatch.
type RegionOutcome struct {
	Leaf    string  `json:"leaf" yaml:"leaf"`
	State   string  `json:"state,omitempty" yaml:"state,omitempty"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`
}

// Result reports how an event was processed. Outcome is the strongest region outcome
// (terminated > consumed > deferred > discarded > no match). Followups are the posted and
// released deferred events processed before ProcessEvent returned.
type Result struct {
	Event     primitives.Event `json:"event" yaml:"event"`
	Outcome   Outcome          `json:"outcome" yaml:"outcome"`
	Regions   []RegionOutcome  `json:"regions,omitempty" yaml:"regions,omitempty"`
	Followups []Result         `json:"followups,omitempty" yaml:"followups,omitempty"`
}

type deferredEvent struct {
	evt   primitives.Event
	state *node
	// released is set when state exits, even if it is re-entered by the same transition.
	released bool
}

// Machine is one running instance of a state tree.
type Machine struct {
	id        string
	config    primitives.MachineConfig
	version   string
	tree      *tree
	conf      *configuration
	history   *HistoryStore
	status    Status
	deferred  []deferredEvent
	posted    []primitives.Event
	issues    []error
	ext       *primitives.ExtendedState
	policy    InconsistencyPolicy
	stepLimit int
	logger    *slog.Logger
	// Pluggable components (nil = defaults)
	actionRunner ActionRunner
	guardEval    GuardEvaluator
	observers    observers
}

// NewMachine validates config and builds a Machine in the constructed state. Structural
// problems are reported as a *primitives.ValidationError.
func NewMachine(config primitives.MachineConfig, opts ...Option) (*Machine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine %q: %w", config.ID, err)
	}

	frozen := config.Clone()
	frozen.Seal()
	config.Seal()

	m := &Machine{
		config:    frozen,
		version:   primitives.ComputeVersion(&frozen),
		history:   NewHistoryStore(),
		status:    StatusConstructed,
		stepLimit: defaultStepLimit,
	}
	m.tree = buildTree(&m.config)
	m.conf = newConfiguration(m.tree)

	for _, opt := range opts {
		opt(m)
	}

	if m.id == "" {
		m.id = uuid.NewString()
	}
	if m.ext == nil {
		m.ext = primitives.NewExtendedState()
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.actionRunner == nil {
		m.actionRunner = defaultActionRunner{}
	}
	if m.guardEval == nil {
		m.guardEval = defaultGuardEvaluator{}
	}
	return m, nil
}

// ID returns the instance ID.
func (m *Machine) ID() string { return m.id }

// Config returns an unsealed copy of the machine definition. The states passed to NewMachine
// are sealed and the machine keeps its own copy, so later edits never reach a running machine.
func (m *Machine) Config() primitives.MachineConfig { return m.config.Clone() }

// Version returns the topology fingerprint of the definition.
func (m *Machine) Version() string { return m.version }

// Status returns the lifecycle state.
func (m *Machine) Status() Status { return m.status }

// Ext returns the extended state shared with actions and guards.
func (m *Machine) Ext() *primitives.ExtendedState { return m.ext }

// Initiate enters the initial configuration. From the terminated state it starts over with
// empty history and no deferred events.
func (m *Machine) Initiate(ctx context.Context) error {
	if m.status == StatusRunning {
		return ErrAlreadyRunning
	}
	m.conf.reset()
	m.history.reset()
	m.deferred = nil
	m.posted = nil
	m.status = StatusRunning

	evt := primitives.Event{Type: EventInitiate}
	var entered []string
	if err := m.enter(ctx, m.tree.root.initial, nil, nil, evt, &entered); err != nil {
		return err
	}
	m.logger.Debug("machine initiated", "machine", m.id, "active", m.ActiveLeaves())
	return nil
}

// Terminate exits every active state, innermost first.
func (m *Machine) Terminate(ctx context.Context) error {
	if m.status != StatusRunning {
		return ErrNotRunning
	}
	return m.terminate(ctx, primitives.Event{Type: EventTerminate})
}

func (m *Machine) terminate(ctx context.Context, evt primitives.Event) error {
	var err error
	if top := m.conf.active[m.tree.root]; top != nil {
		m.recordHistory(top)
		var exited []string
		err = m.exitTree(ctx, top, evt, &exited)
	}
	m.conf.reset()
	m.deferred = nil
	m.posted = nil
	m.status = StatusTerminated
	m.logger.Debug("machine terminated", "machine", m.id)
	return err
}

// ProcessEvent dispatches evt to every active region and runs to completion: events posted
// by custom handlers and released deferred events are processed before it returns.
// History inconsistencies are returned (joined when there are several) after processing
// finishes; any other error stops processing immediately.
func (m *Machine) ProcessEvent(ctx context.Context, evt primitives.Event) (Result, error) {
	if m.status != StatusRunning {
		return Result{Event: evt, Outcome: OutcomeNoMatch}, ErrNotRunning
	}
	m.issues = nil

	res, err := m.dispatch(ctx, evt, m.tree.root)
	for steps := 1; err == nil && m.status == StatusRunning; steps++ {
		next, scope, ok := m.nextQueued()
		if !ok {
			break
		}
		if m.stepLimit > 0 && steps >= m.stepLimit {
			err = fmt.Errorf("%w (%d events)", ErrStepLimit, m.stepLimit)
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
		var follow Result
		follow, err = m.dispatch(ctx, next, scope)
		res.Followups = append(res.Followups, follow)
	}
	if err != nil {
		m.posted = nil
		m.logger.Error("event processing failed", "machine", m.id, "event", evt.Type, "error", err)
		return res, errors.Join(append(m.issues, err)...)
	}

	switch len(m.issues) {
	case 0:
		return res, nil
	case 1:
		return res, m.issues[0]
	}
	return res, errors.Join(m.issues...)
}

// nextQueued pops the next event to run: released deferred events first, in the order they
// were deferred, then posted events.
func (m *Machine) nextQueued() (primitives.Event, *node, bool) {
	for i, d := range m.deferred {
		if !d.released {
			continue
		}
		m.deferred = append(m.deferred[:i:i], m.deferred[i+1:]...)
		return d.evt, m.redeliveryScope(d.state), true
	}
	if len(m.posted) > 0 {
		evt := m.posted[0]
		m.posted = m.posted[1:]
		return evt, m.tree.root, true
	}
	return primitives.Event{}, nil, false
}

// redeliveryScope is the region of the deferring state, widened while that region is no
// longer active.
func (m *Machine) redeliveryScope(n *node) *node {
	r := regionOf(n)
	for !r.isRoot() && !m.conf.isActive(r) {
		r = regionOf(r.parent)
	}
	return r
}

// IsActive reports whether state id is active. Unknown IDs are never active.
func (m *Machine) IsActive(id string) bool {
	n, ok := m.tree.nodes[id]
	return ok && m.conf.isActive(n)
}

// CheckActive is IsActive that reports unknown IDs with ErrUnknownState.
func (m *Machine) CheckActive(id string) (bool, error) {
	n, err := m.tree.lookup(id)
	if err != nil {
		return false, err
	}
	return m.conf.isActive(n), nil
}

// ActiveLeaves returns the active leaf states in declaration order; empty unless running.
func (m *Machine) ActiveLeaves() []string {
	leaves := m.conf.leaves(m.tree.root)
	ids := make([]string, len(leaves))
	for i, n := range leaves {
		ids[i] = n.id
	}
	return ids
}

// ActiveStates returns every active state, outer states before inner ones.
func (m *Machine) ActiveStates() []string {
	var ids []string
	m.conf.walk(m.tree.root, func(n *node) {
		ids = append(ids, n.id)
	})
	return ids
}

// History returns a copy of the recorded history.
func (m *Machine) History() HistorySnapshot {
	return m.history.Snapshot()
}

// Deferred returns the queued deferred events, oldest first.
func (m *Machine) Deferred() []DeferredEvent {
	out := make([]DeferredEvent, len(m.deferred))
	for i, d := range m.deferred {
		out[i] = DeferredEvent{Event: d.evt, State: d.state.id, Released: d.released}
	}
	return out
}

func (m *Machine) inconsistent(err error) {
	m.issues = append(m.issues, err)
	var hie *primitives.HistoryInconsistencyError
	if errors.As(err, &hie) {
		m.observers.OnInconsistency(m.id, hie)
	}
	m.logger.Warn("history inconsistency", "machine", m.id, "policy", m.policy.String(), "error", err)
}

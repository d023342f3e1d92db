// Package hsmx is a hierarchical state machine runtime: UML statecharts with composite
// and orthogonal states, shallow and deep history, deferral, and run-to-completion event
// processing.
//
// A chart is described by a MachineConfig, built in Go with NewMachineBuilder or loaded
// from YAML with LoadChart. NewMachine turns it into a Machine, which is not safe for
// concurrent use; wrap it in a Runner to feed it from several goroutines.
package hsmx

import (
	"log/slog"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

// Definitions.
type (
	MachineConfig  = primitives.MachineConfig
	StateConfig    = primitives.StateConfig
	ReactionConfig = primitives.ReactionConfig
	StateType      = primitives.StateType
	HistoryType    = primitives.HistoryType
	ReactionKind   = primitives.ReactionKind
	Event          = primitives.Event
	Action         = primitives.Action
	Guard          = primitives.Guard
	ActionRef      = primitives.ActionRef
	GuardRef       = primitives.GuardRef
	Handler        = primitives.Handler
	Reactor        = primitives.Reactor
	Decision       = primitives.Decision

	ValidationError           = primitives.ValidationError
	HistoryInconsistencyError = primitives.HistoryInconsistencyError
)

// Runtime.
type (
	Machine             = core.Machine
	Option              = core.Option
	Status              = core.Status
	Outcome             = core.Outcome
	Result              = core.Result
	RegionOutcome       = core.RegionOutcome
	InconsistencyPolicy = core.InconsistencyPolicy
	ActionRunner        = core.ActionRunner
	GuardEvaluator      = core.GuardEvaluator
	Observer            = core.Observer
	NopObserver         = core.NopObserver
	TransitionRecord    = core.TransitionRecord
	ActionError         = core.ActionError
	MachineSnapshot     = core.MachineSnapshot
	HistorySnapshot     = core.HistorySnapshot

	Runner          = core.Runner
	RunnerOption    = core.RunnerOption
	Persister       = core.Persister
	EventPublisher  = core.EventPublisher
	EventSource     = core.EventSource
	MachineMetadata = core.MachineMetadata
)

const (
	Atomic     = primitives.Atomic
	Compound   = primitives.Compound
	Orthogonal = primitives.Orthogonal

	HistoryNone    = primitives.HistoryNone
	ShallowHistory = primitives.ShallowHistory
	DeepHistory    = primitives.DeepHistory
	FullHistory    = primitives.FullHistory

	ReactionTransition = primitives.ReactionTransition
	ReactionInternal   = primitives.ReactionInternal
	ReactionDiscard    = primitives.ReactionDiscard
	ReactionDefer      = primitives.ReactionDefer
	ReactionCustom     = primitives.ReactionCustom
	ReactionTerminate  = primitives.ReactionTerminate

	OutcomeNoMatch    = core.OutcomeNoMatch
	OutcomeDiscarded  = core.OutcomeDiscarded
	OutcomeDeferred   = core.OutcomeDeferred
	OutcomeConsumed   = core.OutcomeConsumed
	OutcomeTerminated = core.OutcomeTerminated

	PolicyReport = core.PolicyReport
	PolicyAbort  = core.PolicyAbort
)

// Errors callers commonly match with errors.Is.
var (
	ErrStructure            = primitives.ErrStructure
	ErrHistoryInconsistency = primitives.ErrHistoryInconsistency
	ErrSealed               = primitives.ErrSealed
	ErrNotRunning           = core.ErrNotRunning
	ErrAlreadyRunning       = core.ErrAlreadyRunning
	ErrUnknownState         = core.ErrUnknownState
	ErrSnapshotMismatch     = core.ErrSnapshotMismatch
	ErrQueueFull            = core.ErrQueueFull
	ErrRunnerStopped        = core.ErrRunnerStopped
	ErrNotFound             = core.ErrNotFound
)

// NewEvent creates an Event with the given type tag and payload.
func NewEvent(eventType string, data any) Event {
	return primitives.NewEvent(eventType, data)
}

// Decisions returned by custom handlers.

func Transit(target string) Decision                          { return primitives.Transit(target) }
func TransitHistory(target string, kind HistoryType) Decision { return primitives.TransitHistory(target, kind) }
func Consume() Decision                                       { return primitives.Consume() }
func Discard() Decision                                       { return primitives.Discard() }
func Defer() Decision                                         { return primitives.Defer() }
func Forward() Decision                                       { return primitives.Forward() }
func Terminate() Decision                                     { return primitives.Terminate() }

// NewMachine validates config and builds a machine in the constructed state.
func NewMachine(config MachineConfig, opts ...Option) (*Machine, error) {
	return core.NewMachine(config, opts...)
}

// NewRunner wraps m in a single-goroutine event loop.
func NewRunner(m *Machine, opts ...RunnerOption) *Runner {
	return core.NewRunner(m, opts...)
}

// Machine options.

func WithLogger(l *slog.Logger) Option                     { return core.WithLogger(l) }
func WithActionRunner(r ActionRunner) Option               { return core.WithActionRunner(r) }
func WithGuardEvaluator(e GuardEvaluator) Option           { return core.WithGuardEvaluator(e) }
func WithObserver(o Observer) Option                       { return core.WithObserver(o) }
func WithInconsistencyPolicy(p InconsistencyPolicy) Option { return core.WithInconsistencyPolicy(p) }
func WithExtendedState(ext *ExtendedState) Option          { return core.WithExtendedState(ext) }
func WithInstanceID(id string) Option                      { return core.WithInstanceID(id) }
func WithStepLimit(n int) Option                           { return core.WithStepLimit(n) }

// Runner options.

func WithQueueSize(size int) RunnerOption          { return core.WithQueueSize(size) }
func WithEventSource(s EventSource) RunnerOption   { return core.WithEventSource(s) }
func WithPersister(p Persister) RunnerOption       { return core.WithPersister(p) }
func WithPublisher(pb EventPublisher) RunnerOption { return core.WithPublisher(pb) }
func WithRunnerLogger(l *slog.Logger) RunnerOption { return core.WithRunnerLogger(l) }

// Options for configuring Machine instances.
package core

import (
	"log/slog"

	"github.com/comalice/hsmx/internal/primitives"
)

// InconsistencyPolicy decides what happens to a reaction that requested a history
// operation its target state does not declare. The error is reported either way.
type InconsistencyPolicy int

const (
	// PolicyReport skips the offending operation and still applies the reaction's decision.
	// A history restore falls back to default entry.
	PolicyReport InconsistencyPolicy = iota
	// PolicyAbort drops the reaction's decision. Checks run before any exit action, so
	// nothing needs to be rolled back.
	PolicyAbort
)

func (p InconsistencyPolicy) String() string {
	if p == PolicyAbort {
		return "abort"
	}
	return "report"
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithActionRunner configures the Machine with a custom ActionRunner.
func WithActionRunner(r ActionRunner) Option {
	return func(m *Machine) {
		m.actionRunner = r
	}
}

// WithGuardEvaluator configures the Machine with a custom GuardEvaluator.
func WithGuardEvaluator(e GuardEvaluator) Option {
	return func(m *Machine) {
		m.guardEval = e
	}
}

// WithObserver adds an Observer. It may be given several times.
func WithObserver(o Observer) Option {
	return func(m *Machine) {
		m.observers = append(m.observers, o)
	}
}

// WithInconsistencyPolicy sets the history inconsistency policy (default PolicyReport).
func WithInconsistencyPolicy(p InconsistencyPolicy) Option {
	return func(m *Machine) {
		m.policy = p
	}
}

// WithExtendedState shares ext with actions and guards instead of a fresh store.
func WithExtendedState(ext *primitives.ExtendedState) Option {
	return func(m *Machine) {
		m.ext = ext
	}
}

// WithInstanceID names the machine instance. The default is a random UUID.
func WithInstanceID(id string) Option {
	return func(m *Machine) {
		m.id = id
	}
}

// WithStepLimit bounds how many events (posted and released deferred ones included) a
// single ProcessEvent call may run.
func WithStepLimit(n int) Option {
	return func(m *Machine) {
		m.stepLimit = n
	}
}

package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned when events are sent to a machine that is not running.
	ErrNotRunning = errors.New("machine is not running")
	// ErrAlreadyRunning is returned by Initiate on a running machine.
	ErrAlreadyRunning = errors.New("machine is already running")
	// ErrUnknownState is wrapped whenever a state ID is not part of the tree.
	ErrUnknownState = errors.New("unknown state")
	// ErrSnapshotMismatch is wrapped when a snapshot does not fit the machine.
	ErrSnapshotMismatch = errors.New("snapshot does not match machine")
)

func unknownState(id string) error {
	return fmt.Errorf("%w %q", ErrUnknownState, id)
}

// Phase identifies where an action failed.
type Phase string

const (
	PhaseEntry      Phase = "entry"
	PhaseExit       Phase = "exit"
	PhaseTransition Phase = "transition"
	PhaseReaction   Phase = "reaction"
)

// ActionError wraps a failure raised by user code while processing an event. The active
// configuration is not defined afterwards; Terminate and Initiate again.
type ActionError struct {
	State string
	Phase Phase
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s action of state %q: %v", e.Phase, e.State, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

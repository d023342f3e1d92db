package primitives

import (
	"errors"
	"fmt"
)

var (
	// ErrStructure is wrapped by every structural issue reported at construction.
	ErrStructure = errors.New("malformed state tree")
	// ErrHistoryInconsistency is wrapped by HistoryInconsistencyError.
	ErrHistoryInconsistency = errors.New("history inconsistency")
	// ErrSealed is the panic value, wrapped, when a state registered with a machine is edited.
	ErrSealed = errors.New("state config is sealed")
)

// HistoryOp names the history operation that was requested.
type HistoryOp string

const (
	OpClear   HistoryOp = "clear"
	OpRestore HistoryOp = "restore"
)

// HistoryInconsistencyError reports a history operation whose kind the target state does not
// declare, e.g. clearing shallow history on a state that only has deep history.
type HistoryInconsistencyError struct {
	State     string
	Op        HistoryOp
	Requested HistoryType
	Declared  HistoryType
}

func (e *HistoryInconsistencyError) Error() string {
	return fmt.Sprintf("state %q: cannot %s %s history, declared history is %s",
		e.State, e.Op, e.Requested, e.Declared)
}

func (e *HistoryInconsistencyError) Unwrap() error {
	return ErrHistoryInconsistency
}

// CheckHistory returns a HistoryInconsistencyError unless declared allows requested.
func CheckHistory(state string, op HistoryOp, requested, declared HistoryType) error {
	if declared.Allows(requested) {
		return nil
	}
	return &HistoryInconsistencyError{
		State:     state,
		Op:        op,
		Requested: requested,
		Declared:  declared,
	}
}

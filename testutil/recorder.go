package testutil

import (
	"fmt"
	"slices"
	"sync"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

// Recorder is a core.Observer that keeps a trace of entries, exits and transitions as
// "enter:ID", "exit:ID" and "SOURCE->TARGET" lines, plus every reported inconsistency.
type Recorder struct {
	mu              sync.Mutex
	trace           []string
	transitions     []core.TransitionRecord
	inconsistencies []*primitives.HistoryInconsistencyError
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnEntry(_, state string) { r.add("enter:" + state) }

func (r *Recorder) OnExit(_, state string) { r.add("exit:" + state) }

func (r *Recorder) OnTransition(rec core.TransitionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, rec)
	r.trace = append(r.trace, fmt.Sprintf("%s->%s", rec.Source, rec.Target))
}

func (r *Recorder) OnDispatch(string, primitives.Event, core.RegionOutcome) {}

func (r *Recorder) OnInconsistency(_ string, err *primitives.HistoryInconsistencyError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inconsistencies = append(r.inconsistencies, err)
}

func (r *Recorder) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, line)
}

// Take returns the trace recorded since the last call and clears it.
func (r *Recorder) Take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.trace
	r.trace = nil
	return out
}

// Transitions returns every transition record so far.
func (r *Recorder) Transitions() []core.TransitionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.transitions)
}

// Inconsistencies returns every reported history inconsistency so far.
func (r *Recorder) Inconsistencies() []*primitives.HistoryInconsistencyError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.inconsistencies)
}

var _ core.Observer = (*Recorder)(nil)

package core

import (
	"errors"

	"github.com/comalice/hsmx/internal/primitives"
)

// reactor is the primitives.Reactor handed to a custom handler of one state.
type reactor struct {
	m     *Machine
	state *node
	// aborted is set when a history request failed under PolicyAbort.
	aborted bool
}

func (r *reactor) State() string { return r.state.id }

func (r *reactor) IsActive(id string) bool { return r.m.IsActive(id) }

func (r *reactor) Ext() *primitives.ExtendedState { return r.m.ext }

func (r *reactor) Post(evt primitives.Event) {
	r.m.posted = append(r.m.posted, evt)
}

func (r *reactor) ClearShallowHistory(id string) error {
	return r.clearHistory(id, primitives.ShallowHistory)
}

func (r *reactor) ClearDeepHistory(id string) error {
	return r.clearHistory(id, primitives.DeepHistory)
}

func (r *reactor) clearHistory(id string, kind primitives.HistoryType) error {
	n, err := r.m.tree.lookup(id)
	if err != nil {
		return err
	}
	err = r.m.history.clear(n, kind)
	if errors.Is(err, primitives.ErrHistoryInconsistency) {
		r.m.inconsistent(err)
		if r.m.policy == PolicyAbort {
			r.aborted = true
		}
	}
	return err
}

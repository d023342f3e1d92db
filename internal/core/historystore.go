// HistoryStore owns the recorded history of one machine instance.

package core

import (
	"maps"
	"slices"

	"github.com/comalice/hsmx/internal/primitives"
)

// HistoryStore records, per history-declaring state, what was active when it was last
// exited. Shallow entries hold the state's active child (for an orthogonal state, each
// region's active child). Deep entries hold the active leaves below the state.
// Entries only ever exist for the kinds a state declares.
type HistoryStore struct {
	shallow map[string][]string
	deep    map[string][]string
}

// HistorySnapshot is the serializable form of a HistoryStore.
type HistorySnapshot struct {
	Shallow map[string][]string `json:"shallow,omitempty" yaml:"shallow,omitempty"`
	Deep    map[string][]string `json:"deep,omitempty" yaml:"deep,omitempty"`
}

// NewHistoryStore creates an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		shallow: make(map[string][]string),
		deep:    make(map[string][]string),
	}
}

// record stores the history of n from the current configuration.
func (h *HistoryStore) record(n *node, c *configuration) {
	if n.history.Allows(primitives.ShallowHistory) {
		var children []string
		if n.typ == primitives.Orthogonal {
			for _, region := range n.children {
				if child := c.active[region]; child != nil {
					children = append(children, child.id)
				}
			}
		} else if child := c.active[n]; child != nil {
			children = []string{child.id}
		}
		h.shallow[n.id] = children
	}
	if n.history.Allows(primitives.DeepHistory) {
		var leaves []string
		for _, leaf := range c.leaves(n) {
			if leaf != n {
				leaves = append(leaves, leaf.id)
			}
		}
		h.deep[n.id] = leaves
	}
}

// guide returns the set of nodes below n an entry should prefer over default initial
// children, or nil when nothing of kind was recorded.
func (h *HistoryStore) guide(t *tree, n *node, kind primitives.HistoryType) map[*node]bool {
	switch kind {
	case primitives.ShallowHistory:
		ids, ok := h.shallow[n.id]
		if !ok {
			return nil
		}
		g := make(map[*node]bool, len(ids))
		for _, id := range ids {
			if x, ok := t.nodes[id]; ok {
				g[x] = true
			}
		}
		return g
	case primitives.DeepHistory:
		ids, ok := h.deep[n.id]
		if !ok {
			return nil
		}
		g := make(map[*node]bool)
		for _, id := range ids {
			x, ok := t.nodes[id]
			if !ok {
				continue
			}
			for ; x != n && !x.isRoot(); x = x.parent {
				g[x] = true
			}
		}
		return g
	}
	return nil
}

// clear drops the recorded history of kind for n. It fails, leaving the store untouched,
// when n does not declare that kind.
func (h *HistoryStore) clear(n *node, kind primitives.HistoryType) error {
	if err := primitives.CheckHistory(n.id, primitives.OpClear, kind, n.history); err != nil {
		return err
	}
	switch kind {
	case primitives.ShallowHistory:
		delete(h.shallow, n.id)
	case primitives.DeepHistory:
		delete(h.deep, n.id)
	}
	return nil
}

// Recorded returns the recorded entry of kind for state id.
func (h *HistoryStore) Recorded(id string, kind primitives.HistoryType) ([]string, bool) {
	var ids []string
	var ok bool
	switch kind {
	case primitives.ShallowHistory:
		ids, ok = h.shallow[id]
	case primitives.DeepHistory:
		ids, ok = h.deep[id]
	}
	return slices.Clone(ids), ok
}

func (h *HistoryStore) reset() {
	clear(h.shallow)
	clear(h.deep)
}

// Snapshot returns a deep copy of the store.
func (h *HistoryStore) Snapshot() HistorySnapshot {
	snap := HistorySnapshot{
		Shallow: make(map[string][]string, len(h.shallow)),
		Deep:    make(map[string][]string, len(h.deep)),
	}
	for id, ids := range h.shallow {
		snap.Shallow[id] = slices.Clone(ids)
	}
	for id, ids := range h.deep {
		snap.Deep[id] = slices.Clone(ids)
	}
	return snap
}

// restore loads snap, rejecting entries for undeclared states or kinds.
func (h *HistoryStore) restore(t *tree, snap HistorySnapshot) error {
	check := func(entries map[string][]string, kind primitives.HistoryType) error {
		for _, id := range slices.Sorted(maps.Keys(entries)) {
			n, err := t.lookup(id)
			if err != nil {
				return err
			}
			if err := primitives.CheckHistory(id, primitives.OpRestore, kind, n.history); err != nil {
				return err
			}
			for _, ref := range entries[id] {
				if _, err := t.lookup(ref); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := check(snap.Shallow, primitives.ShallowHistory); err != nil {
		return err
	}
	if err := check(snap.Deep, primitives.DeepHistory); err != nil {
		return err
	}

	h.reset()
	for id, ids := range snap.Shallow {
		h.shallow[id] = slices.Clone(ids)
	}
	for id, ids := range snap.Deep {
		h.deep[id] = slices.Clone(ids)
	}
	return nil
}

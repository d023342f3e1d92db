// Tree construction: the immutable node graph the runtime works on.

package core

import (
	"slices"

	"github.com/comalice/hsmx/internal/primitives"
)

// node is the runtime descriptor of one state. Nodes are built once per machine and copy
// what they need from the config, so later edits to the config have no effect.
type node struct {
	id       string
	typ      primitives.StateType
	history  primitives.HistoryType
	parent   *node
	children []*node
	initial  *node
	depth    int
	entry    []primitives.ActionRef
	exit     []primitives.ActionRef
	// ancestors runs from the node itself outwards, excluding the machine root.
	ancestors []*node
	reactions map[string][]primitives.ReactionConfig
}

func (n *node) isRoot() bool { return n.parent == nil }

// tree indexes every node by ID. The root is implicit and has an empty ID.
type tree struct {
	root  *node
	nodes map[string]*node
	order []*node // pre-order, declaration order
}

// buildTree precomputes nodes, ancestor chains and the (state, event) reaction registry.
// config must already be valid.
func buildTree(config *primitives.MachineConfig) *tree {
	t := &tree{
		root:  &node{typ: primitives.Compound},
		nodes: make(map[string]*node),
	}
	for _, s := range config.States {
		t.root.children = append(t.root.children, t.add(s, t.root))
	}
	if init := config.InitialState(); init != nil {
		t.root.initial = t.nodes[init.ID]
	}
	return t
}

func (t *tree) add(s *primitives.StateConfig, parent *node) *node {
	n := &node{
		id:        s.ID,
		typ:       s.EffectiveType(),
		history:   s.History,
		parent:    parent,
		depth:     parent.depth + 1,
		entry:     slices.Clone(s.Entry),
		exit:      slices.Clone(s.Exit),
		reactions: make(map[string][]primitives.ReactionConfig),
	}
	n.ancestors = append(make([]*node, 0, n.depth), n)
	if !parent.isRoot() {
		n.ancestors = append(n.ancestors, parent.ancestors...)
	}
	for _, r := range s.Reactions {
		n.reactions[r.Event] = append(n.reactions[r.Event], r)
	}
	t.nodes[n.id] = n
	t.order = append(t.order, n)

	for _, c := range s.Children {
		n.children = append(n.children, t.add(c, n))
	}
	if n.typ == primitives.Compound {
		if ic := s.InitialChild(); ic != nil {
			n.initial = t.nodes[ic.ID]
		}
	}
	return n
}

// lookup resolves id, wrapping ErrUnknownState.
func (t *tree) lookup(id string) (*node, error) {
	if n, ok := t.nodes[id]; ok {
		return n, nil
	}
	return nil, unknownState(id)
}

// isDescendant reports whether n is anc or lies below it.
func isDescendant(n, anc *node) bool {
	for x := n; x != nil; x = x.parent {
		if x == anc {
			return true
		}
	}
	return false
}

// lca returns the lowest common ancestor of a and b (possibly a or b itself).
func lca(a, b *node) *node {
	for a.depth > b.depth {
		a = a.parent
	}
	for b.depth > a.depth {
		b = b.parent
	}
	for a != b {
		a, b = a.parent, b.parent
	}
	return a
}

// pathBetween returns the nodes strictly below anc down to and including n, outermost first.
func pathBetween(anc, n *node) []*node {
	var path []*node
	for x := n; x != anc && x != nil; x = x.parent {
		path = append(path, x)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// regionOf returns the region n belongs to: the nearest ancestor-or-self whose parent is
// orthogonal, or the machine root.
func regionOf(n *node) *node {
	for x := n; !x.isRoot(); x = x.parent {
		if x.parent.typ == primitives.Orthogonal {
			return x
		}
	}
	for n.parent != nil {
		n = n.parent
	}
	return n
}

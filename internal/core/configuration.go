package core

import (
	"fmt"

	"github.com/comalice/hsmx/internal/primitives"
)

// configuration tracks the active configuration. A compound node maps to its active child;
// every region of an active orthogonal node is active, so orthogonal nodes need no entry.
// The machine root maps to its active top-level state while the machine runs.
type configuration struct {
	tree   *tree
	active map[*node]*node
}

func newConfiguration(t *tree) *configuration {
	return &configuration{tree: t, active: make(map[*node]*node)}
}

func (c *configuration) empty() bool {
	return c.active[c.tree.root] == nil
}

// isActive walks n's ancestor chain, O(depth).
func (c *configuration) isActive(n *node) bool {
	if n.isRoot() {
		return !c.empty()
	}
	for x := n; !x.isRoot(); x = x.parent {
		if x.parent.typ == primitives.Orthogonal {
			continue
		}
		if c.active[x.parent] != x {
			return false
		}
	}
	return true
}

// activate marks n as the active child of its parent.
func (c *configuration) activate(n *node) {
	if n.parent.typ != primitives.Orthogonal {
		c.active[n.parent] = n
	}
}

// deactivate forgets n's active child and unlinks n from its parent.
func (c *configuration) deactivate(n *node) {
	delete(c.active, n)
	if p := n.parent; c.active[p] == n {
		delete(c.active, p)
	}
}

func (c *configuration) reset() {
	clear(c.active)
}

// leaves returns the active leaves below n in declaration order.
func (c *configuration) leaves(n *node) []*node {
	var out []*node
	c.walk(n, func(x *node) {
		if len(x.children) == 0 {
			out = append(out, x)
		}
	})
	return out
}

// walk visits n and its active descendants in pre-order, declaration order.
func (c *configuration) walk(n *node, fn func(*node)) {
	if !n.isRoot() {
		fn(n)
	}
	switch {
	case n.typ == primitives.Orthogonal:
		for _, child := range n.children {
			c.walk(child, fn)
		}
	case len(n.children) > 0:
		if child := c.active[n]; child != nil {
			c.walk(child, fn)
		}
	}
}

// rebuild replaces the configuration with the one implied by leaves. It fails when the
// leaves are not atomic, overlap within a compound state, or leave a region unfilled.
func (c *configuration) rebuild(leaves []*node) error {
	active := make(map[*node]*node)
	for _, leaf := range leaves {
		if len(leaf.children) > 0 {
			return fmt.Errorf("state %q is not a leaf", leaf.id)
		}
		for x := leaf; !x.isRoot(); x = x.parent {
			if x.parent.typ == primitives.Orthogonal {
				continue
			}
			if prev, ok := active[x.parent]; ok && prev != x {
				return fmt.Errorf("states %q and %q are both active in %q", prev.id, x.id, x.parent.id)
			}
			active[x.parent] = x
		}
	}

	c.active = active
	if len(leaves) == 0 {
		return nil
	}
	var missing string
	var check func(n *node)
	check = func(n *node) {
		switch {
		case n.typ == primitives.Orthogonal:
			for _, child := range n.children {
				check(child)
			}
		case len(n.children) > 0:
			child := active[n]
			if child == nil {
				if missing == "" {
					missing = n.id
				}
				return
			}
			check(child)
		}
	}
	check(c.tree.root)
	if missing != "" {
		clear(c.active)
		return fmt.Errorf("state %q has no active child", missing)
	}
	return nil
}

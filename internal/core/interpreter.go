package core

import (
	"context"
	"fmt"

	"github.com/comalice/hsmx/internal/primitives"
)

// dispatch offers evt to the active leaves below scope, innermost state first. Each leaf
// is searched outwards until a state reacts; a state reacts at most once per event, and a
// leaf exited by an earlier region's reaction is skipped.
func (m *Machine) dispatch(ctx context.Context, evt primitives.Event, scope *node) (Result, error) {
	res := Result{Event: evt, Outcome: OutcomeNoMatch}
	reacted := make(map[*node]RegionOutcome)
	forwarded := make(map[*node]bool)

	for _, leaf := range m.conf.leaves(scope) {
		if m.status != StatusRunning {
			break
		}
		if !m.conf.isActive(leaf) {
			continue
		}

		ro := RegionOutcome{Leaf: leaf.id, Outcome: OutcomeNoMatch}
		for _, s := range leaf.ancestors {
			if prev, ok := reacted[s]; ok {
				ro.State, ro.Outcome = prev.State, prev.Outcome
				break
			}
			if forwarded[s] {
				continue
			}
			out, handled, err := m.react(ctx, s, evt, forwarded)
			if err != nil {
				ro.State, ro.Outcome = s.id, out
				res.add(ro)
				return res, err
			}
			if handled {
				ro.State, ro.Outcome = s.id, out
				reacted[s] = ro
				break
			}
		}
		res.add(ro)
		m.observers.OnDispatch(m.id, evt, ro)
	}

	m.logger.Debug("event dispatched", "machine", m.id, "event", evt.Type, "outcome", string(res.Outcome))
	return res, nil
}

func (r *Result) add(ro RegionOutcome) {
	r.Regions = append(r.Regions, ro)
	if ro.Outcome.rank() > r.Outcome.rank() {
		r.Outcome = ro.Outcome
	}
}

// react tries the reactions s declares for evt in declaration order. The first one whose
// guard passes fires. handled is false when nothing fired or a custom handler forwarded.
func (m *Machine) react(ctx context.Context, s *node, evt primitives.Event, forwarded map[*node]bool) (Outcome, bool, error) {
	for _, r := range s.reactions[evt.Type] {
		if !m.guardEval.Eval(ctx, m.ext, r.Guard, evt) {
			continue
		}

		d := r.Decision()
		if r.EffectiveKind() == primitives.ReactionCustom {
			rt := &reactor{m: m, state: s}
			var err error
			d, err = r.Handler(ctx, rt, evt)
			if err != nil {
				return OutcomeConsumed, true, &ActionError{State: s.id, Phase: PhaseReaction, Err: err}
			}
			if rt.aborted {
				m.logger.Debug("reaction dropped", "machine", m.id, "state", s.id, "event", evt.Type)
				return OutcomeDiscarded, true, nil
			}
			switch d.Kind {
			case primitives.ReactionForward:
				forwarded[s] = true
				return OutcomeNoMatch, false, nil
			case "":
				d = primitives.Consume()
			}
		}

		out, err := m.execute(ctx, s, d, r.Actions, evt)
		return out, true, err
	}
	return OutcomeNoMatch, false, nil
}

// execute applies a reaction decision taken by state s.
func (m *Machine) execute(ctx context.Context, s *node, d primitives.Decision, actions []primitives.ActionRef, evt primitives.Event) (Outcome, error) {
	switch d.Kind {
	case primitives.ReactionTransition:
		target, err := m.tree.lookup(d.Target)
		if err != nil {
			return OutcomeNoMatch, fmt.Errorf("transition from %q: %w", s.id, err)
		}
		switch d.History {
		case primitives.HistoryNone, primitives.ShallowHistory, primitives.DeepHistory:
		default:
			return OutcomeNoMatch, fmt.Errorf("transition from %q to %q: cannot request %q history, only shallow or deep",
				s.id, target.id, string(d.History))
		}
		return m.transit(ctx, s, target, d.History, actions, evt)
	case primitives.ReactionInternal:
		return OutcomeConsumed, m.runActions(ctx, s, PhaseReaction, actions, evt)
	case primitives.ReactionDiscard:
		return OutcomeDiscarded, m.runActions(ctx, s, PhaseReaction, actions, evt)
	case primitives.ReactionDefer:
		m.deferred = append(m.deferred, deferredEvent{evt: evt, state: s})
		return OutcomeDeferred, nil
	case primitives.ReactionTerminate:
		if err := m.runActions(ctx, s, PhaseReaction, actions, evt); err != nil {
			return OutcomeTerminated, err
		}
		return OutcomeTerminated, m.terminate(ctx, evt)
	}
	return OutcomeNoMatch, fmt.Errorf("state %q: unsupported decision %q", s.id, string(d.Kind))
}

// transit runs a transition from source to target with external semantics: the domain is
// the least common compound ancestor, lifted above source and target when one contains the
// other. A history request is checked before anything is exited.
func (m *Machine) transit(ctx context.Context, source, target *node, kind primitives.HistoryType, actions []primitives.ActionRef, evt primitives.Event) (Outcome, error) {
	if kind != primitives.HistoryNone {
		if err := primitives.CheckHistory(target.id, primitives.OpRestore, kind, target.history); err != nil {
			m.inconsistent(err)
			if m.policy == PolicyAbort {
				return OutcomeDiscarded, nil
			}
			kind = primitives.HistoryNone
		}
	}

	domain := computeLCCA(source, target)
	rec := TransitionRecord{
		MachineID: m.id,
		Event:     evt,
		Source:    source.id,
		Target:    target.id,
		History:   kind,
	}

	if top := m.conf.active[domain]; top != nil {
		m.recordHistory(top)
		if err := m.exitTree(ctx, top, evt, &rec.Exited); err != nil {
			return OutcomeConsumed, err
		}
	}

	if err := m.runActions(ctx, source, PhaseTransition, actions, evt); err != nil {
		return OutcomeConsumed, err
	}

	var guide map[*node]bool
	if kind != primitives.HistoryNone {
		guide = m.history.guide(m.tree, target, kind)
	}
	path := getEntryStates(domain, target)
	if err := m.enter(ctx, path[0], path[1:], guide, evt, &rec.Entered); err != nil {
		return OutcomeConsumed, err
	}

	m.observers.OnTransition(rec)
	m.logger.Debug("transition", "machine", m.id, "event", evt.Type, "source", source.id,
		"target", target.id, "history", kind.String())
	return OutcomeConsumed, nil
}

// computeLCCA returns the transition domain: the least common compound ancestor of source
// and target, never source or target themselves.
func computeLCCA(source, target *node) *node {
	domain := lca(source, target)
	if domain == source || domain == target {
		domain = domain.parent
	}
	for domain.typ == primitives.Orthogonal {
		domain = domain.parent
	}
	return domain
}

// getEntryStates returns the explicit entry path from below domain down to target.
func getEntryStates(domain, target *node) []*node {
	return pathBetween(domain, target)
}

// recordHistory records every history-declaring state in the active sub-tree rooted at top.
func (m *Machine) recordHistory(top *node) {
	m.conf.walk(top, func(n *node) {
		if n.history != primitives.HistoryNone {
			m.history.record(n, m.conf)
		}
	})
}

// exitTree exits the active sub-tree rooted at n in post-order. Regions of an orthogonal
// state are exited in reverse declaration order.
func (m *Machine) exitTree(ctx context.Context, n *node, evt primitives.Event, exited *[]string) error {
	switch {
	case n.typ == primitives.Orthogonal:
		for i := len(n.children) - 1; i >= 0; i-- {
			if err := m.exitTree(ctx, n.children[i], evt, exited); err != nil {
				return err
			}
		}
	case len(n.children) > 0:
		if child := m.conf.active[n]; child != nil {
			if err := m.exitTree(ctx, child, evt, exited); err != nil {
				return err
			}
		}
	}

	if err := m.runActions(ctx, n, PhaseExit, n.exit, evt); err != nil {
		return err
	}
	m.conf.deactivate(n)
	m.releaseDeferred(n)
	*exited = append(*exited, n.id)
	m.observers.OnExit(m.id, n.id)
	m.logger.Debug("state exited", "machine", m.id, "state", n.id)
	return nil
}

// releaseDeferred marks the events deferred by n for redelivery.
func (m *Machine) releaseDeferred(n *node) {
	for i := range m.deferred {
		if m.deferred[i].state == n {
			m.deferred[i].released = true
		}
	}
}

// enter activates n and completes entry down to leaves. path lists explicit descendants
// still to enter; once it is exhausted, guide (recorded history) is preferred over default
// initial children.
func (m *Machine) enter(ctx context.Context, n *node, path []*node, guide map[*node]bool, evt primitives.Event, entered *[]string) error {
	m.conf.activate(n)
	if err := m.runActions(ctx, n, PhaseEntry, n.entry, evt); err != nil {
		return err
	}
	*entered = append(*entered, n.id)
	m.observers.OnEntry(m.id, n.id)
	m.logger.Debug("state entered", "machine", m.id, "state", n.id)

	switch {
	case n.typ == primitives.Orthogonal:
		for _, region := range n.children {
			var sub []*node
			if len(path) > 0 && path[0] == region {
				sub = path[1:]
			}
			if err := m.enter(ctx, region, sub, guide, evt, entered); err != nil {
				return err
			}
		}
	case len(n.children) > 0:
		next, rest := n.initial, []*node(nil)
		if len(path) > 0 {
			next, rest = path[0], path[1:]
		} else {
			for _, child := range n.children {
				if guide[child] {
					next = child
					break
				}
			}
		}
		return m.enter(ctx, next, rest, guide, evt, entered)
	}
	return nil
}

func (m *Machine) runActions(ctx context.Context, n *node, phase Phase, actions []primitives.ActionRef, evt primitives.Event) error {
	for _, action := range actions {
		if err := m.actionRunner.Run(ctx, m.ext, action, evt); err != nil {
			return &ActionError{State: n.id, Phase: phase, Err: err}
		}
	}
	return nil
}

// defaultActionRunner runs Action values and plain funcs with the Action signature.
type defaultActionRunner struct{}

func (defaultActionRunner) Run(ctx context.Context, ext *primitives.ExtendedState, action primitives.ActionRef, evt primitives.Event) error {
	switch a := action.(type) {
	case nil:
		return nil
	case primitives.Action:
		return a(ctx, ext, evt)
	case func(context.Context, *primitives.ExtendedState, primitives.Event) error:
		return a(ctx, ext, evt)
	}
	return fmt.Errorf("unregistered action: %v", action)
}

// defaultGuardEvaluator accepts nil guards and evaluates Guard values; anything else fails.
type defaultGuardEvaluator struct{}

func (defaultGuardEvaluator) Eval(ctx context.Context, ext *primitives.ExtendedState, guard primitives.GuardRef, evt primitives.Event) bool {
	switch g := guard.(type) {
	case nil:
		return true
	case primitives.Guard:
		return g(ctx, ext, evt)
	case func(context.Context, *primitives.ExtendedState, primitives.Event) bool:
		return g(ctx, ext, evt)
	}
	return false
}

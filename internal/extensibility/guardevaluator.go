package extensibility

import (
	"context"
	"strconv"
	"strings"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

// NamedGuardEvaluator resolves string guard references through a registry. Names it does
// not know go to the fallback evaluator when one is set, and fail closed otherwise.
type NamedGuardEvaluator struct {
	guards   map[string]primitives.Guard
	fallback core.GuardEvaluator
}

// NewNamedGuardEvaluator creates an empty registry.
func NewNamedGuardEvaluator() *NamedGuardEvaluator {
	return &NamedGuardEvaluator{guards: make(map[string]primitives.Guard)}
}

// Register binds name to guard.
func (e *NamedGuardEvaluator) Register(name string, guard primitives.Guard) *NamedGuardEvaluator {
	e.guards[name] = guard
	return e
}

// WithFallback evaluates unregistered string guards with fb, e.g. an
// ExpressionGuardEvaluator.
func (e *NamedGuardEvaluator) WithFallback(fb core.GuardEvaluator) *NamedGuardEvaluator {
	e.fallback = fb
	return e
}

// Has reports whether name is registered.
func (e *NamedGuardEvaluator) Has(name string) bool {
	_, ok := e.guards[name]
	return ok
}

// Eval evaluates a guard condition.
func (e *NamedGuardEvaluator) Eval(ctx context.Context, ext *primitives.ExtendedState, guard primitives.GuardRef, evt primitives.Event) bool {
	switch g := guard.(type) {
	case nil:
		return true
	case string:
		if fn, ok := e.guards[g]; ok {
			return fn(ctx, ext, evt)
		}
		if e.fallback != nil {
			return e.fallback.Eval(ctx, ext, guard, evt)
		}
		return false
	case primitives.Guard:
		return g(ctx, ext, evt)
	case func(context.Context, *primitives.ExtendedState, primitives.Event) bool:
		return g(ctx, ext, evt)
	default:
		return false
	}
}

// ExpressionGuardEvaluator evaluates "key op value" expressions against the extended state,
// e.g. "temp > 30" or "loggedIn == true". Supported operators: == != > >= < <=.
// A key prefixed with "event." reads the event data instead, which must be a
// map[string]any.
type ExpressionGuardEvaluator struct{}

// NewExpressionGuardEvaluator creates a new ExpressionGuardEvaluator.
func NewExpressionGuardEvaluator() *ExpressionGuardEvaluator {
	return &ExpressionGuardEvaluator{}
}

// Eval parses and evaluates the expression. Malformed expressions and missing keys are false.
func (e *ExpressionGuardEvaluator) Eval(_ context.Context, ext *primitives.ExtendedState, guard primitives.GuardRef, evt primitives.Event) bool {
	if guard == nil {
		return true
	}
	str, ok := guard.(string)
	if !ok {
		return false
	}
	parts := strings.Fields(str)
	if len(parts) != 3 {
		return false
	}
	key, op, want := parts[0], parts[1], parts[2]

	v, found := lookup(ext, evt, key)
	if !found {
		return false
	}

	switch op {
	case "==":
		return equal(v, want)
	case "!=":
		return !equal(v, want)
	case ">", ">=", "<", "<=":
		got, ok := toFloat(v)
		if !ok {
			return false
		}
		w, err := strconv.ParseFloat(want, 64)
		if err != nil {
			return false
		}
		switch op {
		case ">":
			return got > w
		case ">=":
			return got >= w
		case "<":
			return got < w
		default:
			return got <= w
		}
	}
	return false
}

func lookup(ext *primitives.ExtendedState, evt primitives.Event, key string) (any, bool) {
	if field, ok := strings.CutPrefix(key, "event."); ok {
		data, isMap := evt.Data.(map[string]any)
		if !isMap {
			return nil, false
		}
		v, found := data[field]
		return v, found
	}
	return ext.Get(key)
}

func equal(v any, want string) bool {
	switch want {
	case "true":
		return v == true
	case "false":
		return v == false
	case "nil":
		return v == nil
	}
	if f, ok := toFloat(v); ok {
		w, err := strconv.ParseFloat(want, 64)
		return err == nil && f == w
	}
	if s, ok := v.(string); ok {
		return s == want
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

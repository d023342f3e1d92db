// Package extensibility provides pluggable action runners, guard evaluators and event
// sources for core.Machine and core.Runner.
package extensibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

// ErrUnknownAction is returned for action names that were never registered.
var ErrUnknownAction = errors.New("action not registered")

// NamedActionRunner resolves string action references through a registry, which lets
// chart documents refer to Go code by name. Function values run directly.
type NamedActionRunner struct {
	actions map[string]primitives.Action
}

// NewNamedActionRunner creates an empty registry.
func NewNamedActionRunner() *NamedActionRunner {
	return &NamedActionRunner{actions: make(map[string]primitives.Action)}
}

// Register binds name to action, replacing any previous binding.
func (r *NamedActionRunner) Register(name string, action primitives.Action) *NamedActionRunner {
	r.actions[name] = action
	return r
}

// Has reports whether name is registered.
func (r *NamedActionRunner) Has(name string) bool {
	_, ok := r.actions[name]
	return ok
}

// Names lists the registered names, sorted.
func (r *NamedActionRunner) Names() []string {
	return slices.Sorted(maps.Keys(r.actions))
}

// Run executes the given action reference.
func (r *NamedActionRunner) Run(ctx context.Context, ext *primitives.ExtendedState, action primitives.ActionRef, evt primitives.Event) error {
	switch a := action.(type) {
	case nil:
		return nil
	case string:
		fn, ok := r.actions[a]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAction, a)
		}
		return fn(ctx, ext, evt)
	case primitives.Action:
		return a(ctx, ext, evt)
	case func(context.Context, *primitives.ExtendedState, primitives.Event) error:
		return a(ctx, ext, evt)
	default:
		return fmt.Errorf("unknown action type: %T", action)
	}
}

// LoggingActionRunner wraps an ActionRunner and logs every execution.
type LoggingActionRunner struct {
	inner  core.ActionRunner
	logger *slog.Logger
}

// NewLoggingActionRunner creates a new LoggingActionRunner wrapping the given inner runner.
func NewLoggingActionRunner(inner core.ActionRunner, logger *slog.Logger) *LoggingActionRunner {
	return &LoggingActionRunner{inner: inner, logger: logger}
}

// Run logs after delegating to the inner runner: debug on success, warn on failure.
func (r *LoggingActionRunner) Run(ctx context.Context, ext *primitives.ExtendedState, action primitives.ActionRef, evt primitives.Event) error {
	start := time.Now()
	err := r.inner.Run(ctx, ext, action, evt)
	attrs := []any{"action", actionName(action), "event", evt.Type, "elapsed", time.Since(start)}
	if err != nil {
		r.logger.Warn("action failed", append(attrs, "error", err)...)
		return err
	}
	r.logger.Debug("action executed", attrs...)
	return nil
}

func actionName(action primitives.ActionRef) string {
	if s, ok := action.(string); ok {
		return s
	}
	return fmt.Sprintf("%T", action)
}

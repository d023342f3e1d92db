// Package testutil holds helpers for testing code built on hsmx: runtime adapters that run
// one scenario against both runtimes, and an observer that records what a machine did.
package testutil

import (
	"context"
	"slices"
	"time"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
	"github.com/comalice/hsmx/realtime"
)

// RuntimeAdapter provides a common interface for both the event-driven and the
// tick-based runtime, so the same scenario can run on both.
type RuntimeAdapter interface {
	Start(ctx context.Context) error
	Stop()
	Send(evt primitives.Event) error
	IsActive(id string) bool
	ActiveLeaves() []string
	// WaitForStability waits until previously sent events have been processed.
	WaitForStability(timeout time.Duration) error
}

// EventDrivenAdapter wraps core.Runner.
type EventDrivenAdapter struct {
	r *core.Runner
}

// NewEventDrivenAdapter creates a new adapter for the event-driven runtime.
func NewEventDrivenAdapter(m *core.Machine) *EventDrivenAdapter {
	return &EventDrivenAdapter{r: core.NewRunner(m)}
}

func (a *EventDrivenAdapter) Start(ctx context.Context) error { return a.r.Start(ctx) }

func (a *EventDrivenAdapter) Stop() { a.r.Stop() }

func (a *EventDrivenAdapter) Send(evt primitives.Event) error { return a.r.Send(evt) }

func (a *EventDrivenAdapter) IsActive(id string) bool {
	var active bool
	_ = a.r.Do(context.Background(), func(m *core.Machine) error {
		active = m.IsActive(id)
		return nil
	})
	return active
}

func (a *EventDrivenAdapter) ActiveLeaves() []string {
	var leaves []string
	_ = a.r.Do(context.Background(), func(m *core.Machine) error {
		leaves = m.ActiveLeaves()
		return nil
	})
	return leaves
}

// WaitForStability round-trips a no-op through the queue; everything sent before it has
// been processed when it returns.
func (a *EventDrivenAdapter) WaitForStability(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.r.Do(ctx, func(*core.Machine) error { return nil })
}

// TickBasedAdapter wraps realtime.RealtimeRuntime.
type TickBasedAdapter struct {
	rt       *realtime.RealtimeRuntime
	tickRate time.Duration
}

// NewTickBasedAdapter creates a new adapter for the tick-based runtime.
func NewTickBasedAdapter(m *core.Machine, tickRate time.Duration) *TickBasedAdapter {
	return &TickBasedAdapter{
		rt:       realtime.NewRuntime(m, realtime.Config{TickRate: tickRate}),
		tickRate: tickRate,
	}
}

func (a *TickBasedAdapter) Start(ctx context.Context) error { return a.rt.Start(ctx) }

func (a *TickBasedAdapter) Stop() { a.rt.Stop() }

func (a *TickBasedAdapter) Send(evt primitives.Event) error { return a.rt.Send(evt) }

func (a *TickBasedAdapter) IsActive(id string) bool {
	var active bool
	_ = a.rt.Do(func(m *core.Machine) error {
		active = m.IsActive(id)
		return nil
	})
	return active
}

func (a *TickBasedAdapter) ActiveLeaves() []string {
	var leaves []string
	_ = a.rt.Do(func(m *core.Machine) error {
		leaves = slices.Clone(m.ActiveLeaves())
		return nil
	})
	return leaves
}

// WaitForStability waits for two more ticks so that the batch open at call time has
// been processed.
func (a *TickBasedAdapter) WaitForStability(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	target := a.rt.TickNumber() + 2
	for a.rt.TickNumber() < target {
		if time.Now().After(deadline) {
			return context.DeadlineExceeded
		}
		time.Sleep(a.tickRate / 2)
	}
	return nil
}

var (
	_ RuntimeAdapter = (*EventDrivenAdapter)(nil)
	_ RuntimeAdapter = (*TickBasedAdapter)(nil)
)

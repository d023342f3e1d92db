package realtime

import (
	"context"

	"github.com/comalice/hsmx/internal/core"
)

// TickResult is what one tick did.
type TickResult struct {
	Tick    uint64
	Events  []EventWithMeta
	Results []core.Result
	Errors  []error // parallel to Results; nil entries for clean events
}

// processTick runs one complete tick: collect, sort, process.
func (rt *RealtimeRuntime) processTick(ctx context.Context) TickResult {
	events := rt.collectEvents()
	sortEvents(events)

	rt.machineMu.Lock()
	defer rt.machineMu.Unlock()

	rt.tickNum++
	tr := processBatch(ctx, rt.m, events)
	tr.Tick = rt.tickNum
	for i, err := range tr.Errors {
		if err != nil {
			rt.logger.Warn("tick event failed", "tick", tr.Tick, "event", tr.Events[i].Event.Type, "error", err)
		}
	}
	if rt.recording {
		rt.recorded = append(rt.recorded, events)
	}
	if rt.onTick != nil {
		rt.onTick(tr)
	}
	return tr
}

// collectEvents atomically retrieves and clears the event batch.
func (rt *RealtimeRuntime) collectEvents() []EventWithMeta {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	events := rt.eventBatch
	rt.eventBatch = make([]EventWithMeta, 0, rt.maxEvents)
	return events
}

func processBatch(ctx context.Context, m *core.Machine, events []EventWithMeta) TickResult {
	tr := TickResult{
		Events:  events,
		Results: make([]core.Result, 0, len(events)),
		Errors:  make([]error, 0, len(events)),
	}
	for _, e := range events {
		res, err := m.ProcessEvent(ctx, e.Event)
		tr.Results = append(tr.Results, res)
		tr.Errors = append(tr.Errors, err)
	}
	return tr
}

// Replay feeds recorded tick batches, already in processing order, to m one tick at a
// time. m must be running.
func Replay(ctx context.Context, m *core.Machine, ticks [][]EventWithMeta) []TickResult {
	out := make([]TickResult, 0, len(ticks))
	for i, batch := range ticks {
		tr := processBatch(ctx, m, batch)
		tr.Tick = uint64(i + 1)
		out = append(out, tr)
	}
	return out
}

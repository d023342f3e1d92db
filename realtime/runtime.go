package realtime

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/logging"
	"github.com/comalice/hsmx/internal/primitives"
)

// ErrBatchFull is returned by Send when the current tick already holds MaxEventsPerTick
// events.
var ErrBatchFull = errors.New("tick batch full")

// RealtimeRuntime drives a core.Machine from a fixed-rate tick loop.
type RealtimeRuntime struct {
	m         *core.Machine
	machineMu sync.Mutex
	tickNum   uint64

	tickRate  time.Duration
	maxEvents int
	logger    *slog.Logger
	onTick    func(TickResult)

	eventBatch  []EventWithMeta
	batchMu     sync.Mutex
	sequenceNum uint64

	recording bool
	recorded  [][]EventWithMeta

	cancel  context.CancelFunc
	stopped chan struct{}
}

// Config configures the real-time runtime.
type Config struct {
	TickRate         time.Duration // default 60 FPS
	MaxEventsPerTick int           // default 1000
	Logger           *slog.Logger
	// OnTick runs on the tick goroutine after every tick, with the machine locked.
	OnTick func(TickResult)
	// Record keeps every processed batch for Recorded.
	Record bool
}

// NewRuntime wraps m. The runtime owns m; use Do to inspect it.
func NewRuntime(m *core.Machine, cfg Config) *RealtimeRuntime {
	if cfg.MaxEventsPerTick <= 0 {
		cfg.MaxEventsPerTick = 1000
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 16667 * time.Microsecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return &RealtimeRuntime{
		m:          m,
		tickRate:   cfg.TickRate,
		maxEvents:  cfg.MaxEventsPerTick,
		logger:     cfg.Logger,
		onTick:     cfg.OnTick,
		recording:  cfg.Record,
		eventBatch: make([]EventWithMeta, 0, cfg.MaxEventsPerTick),
		stopped:    make(chan struct{}),
	}
}

// Start initiates the machine unless it is already running and starts the tick loop.
func (rt *RealtimeRuntime) Start(ctx context.Context) error {
	rt.machineMu.Lock()
	if rt.m.Status() != core.StatusRunning {
		if err := rt.m.Initiate(ctx); err != nil {
			rt.machineMu.Unlock()
			return err
		}
	}
	rt.machineMu.Unlock()

	tickCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel
	go rt.tickLoop(tickCtx)
	return nil
}

// Stop ends the tick loop after the current tick. Events still batched are dropped.
func (rt *RealtimeRuntime) Stop() {
	if rt.cancel == nil {
		return
	}
	rt.cancel()
	<-rt.stopped
}

func (rt *RealtimeRuntime) tickLoop(ctx context.Context) {
	defer close(rt.stopped)
	ticker := time.NewTicker(rt.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.processTick(ctx)
		}
	}
}

// Tick processes the current batch immediately. It is meant for runtimes that are not
// started, e.g. tests stepping a simulation by hand.
func (rt *RealtimeRuntime) Tick(ctx context.Context) TickResult {
	return rt.processTick(ctx)
}

// Send queues an event for the next tick with priority 0.
func (rt *RealtimeRuntime) Send(evt primitives.Event) error {
	return rt.SendWithPriority(evt, 0)
}

// SendWithPriority queues an event for the next tick.
func (rt *RealtimeRuntime) SendWithPriority(evt primitives.Event, priority int) error {
	rt.batchMu.Lock()
	defer rt.batchMu.Unlock()

	if len(rt.eventBatch) >= rt.maxEvents {
		return ErrBatchFull
	}
	rt.eventBatch = append(rt.eventBatch, EventWithMeta{
		Event:       evt,
		SequenceNum: rt.sequenceNum,
		Priority:    priority,
	})
	rt.sequenceNum++
	return nil
}

// TickNumber returns the number of ticks processed so far.
func (rt *RealtimeRuntime) TickNumber() uint64 {
	rt.machineMu.Lock()
	defer rt.machineMu.Unlock()
	return rt.tickNum
}

// Do runs fn with the machine between ticks.
func (rt *RealtimeRuntime) Do(fn func(*core.Machine) error) error {
	rt.machineMu.Lock()
	defer rt.machineMu.Unlock()
	return fn(rt.m)
}

// Recorded returns a copy of the processed batches, in processing order. Empty unless
// Config.Record is set.
func (rt *RealtimeRuntime) Recorded() [][]EventWithMeta {
	rt.machineMu.Lock()
	defer rt.machineMu.Unlock()
	out := make([][]EventWithMeta, len(rt.recorded))
	for i, b := range rt.recorded {
		out[i] = slices.Clone(b)
	}
	return out
}

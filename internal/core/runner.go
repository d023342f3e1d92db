package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/comalice/hsmx/internal/logging"
	"github.com/comalice/hsmx/internal/primitives"
)

var (
	// ErrQueueFull is returned by Send when the runner queue is full (backpressure).
	ErrQueueFull = errors.New("event queue full (backpressure)")
	// ErrRunnerStopped is returned once Stop has been called.
	ErrRunnerStopped = errors.New("runner stopped")
)

const defaultQueueSize = 1000

// Runner serializes access to a Machine from any number of goroutines: a single goroutine
// owns the machine and processes a buffered queue of requests. After each event the
// snapshot is saved and the event published when a Persister or EventPublisher is set.
type Runner struct {
	m         *Machine
	queue     chan request
	done      chan struct{}
	stopped   chan struct{}
	source    EventSource
	persister Persister
	publisher EventPublisher
	logger    *slog.Logger
	queueSize int
	startOnce sync.Once
	stopOnce  sync.Once
}

type request struct {
	ctx   context.Context
	evt   primitives.Event
	fn    func(*Machine) error
	reply chan reply
}

type reply struct {
	res Result
	err error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithQueueSize sets the event queue buffer size.
func WithQueueSize(size int) RunnerOption {
	return func(r *Runner) {
		r.queueSize = size
	}
}

// WithEventSource feeds every event of s into the runner.
func WithEventSource(s EventSource) RunnerOption {
	return func(r *Runner) {
		r.source = s
	}
}

// WithPersister saves a snapshot after every event and resumes from it on Start.
func WithPersister(p Persister) RunnerOption {
	return func(r *Runner) {
		r.persister = p
	}
}

// WithPublisher publishes every processed event.
func WithPublisher(pb EventPublisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = pb
	}
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner wraps m. The runner owns m from Start on; do not touch m directly afterwards.
func NewRunner(m *Machine, opts ...RunnerOption) *Runner {
	r := &Runner{
		m:         m,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.queue = make(chan request, r.queueSize)
	return r
}

// Start resumes the machine from the persister when it holds a snapshot for the machine
// ID, initiates it otherwise (unless already running), and launches the processing
// goroutine. Calling Start again is a no-op.
func (r *Runner) Start(ctx context.Context) error {
	var err error
	r.startOnce.Do(func() {
		if err = r.resume(ctx); err != nil {
			return
		}
		go r.loop()
		if r.source != nil {
			go r.feed()
		}
	})
	return err
}

func (r *Runner) resume(ctx context.Context) error {
	if r.persister != nil {
		snap, err := r.persister.Load(ctx, r.m.ID())
		switch {
		case err == nil:
			if err := r.m.Restore(snap); err != nil {
				return err
			}
			r.logger.Info("machine resumed", "machine", r.m.ID(), "active", snap.Active)
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	if r.m.Status() == StatusRunning {
		return nil
	}
	return r.m.Initiate(ctx)
}

func (r *Runner) loop() {
	defer close(r.stopped)
	for {
		select {
		case req := <-r.queue:
			r.handle(req)
		case <-r.done:
			return
		}
	}
}

func (r *Runner) feed() {
	for {
		select {
		case evt, ok := <-r.source.Events():
			if !ok {
				return
			}
			if err := r.Send(evt); err != nil {
				r.logger.Warn("event source dropped event", "machine", r.m.ID(), "event", evt.Type, "error", err)
				if errors.Is(err, ErrRunnerStopped) {
					return
				}
			}
		case <-r.done:
			return
		}
	}
}

func (r *Runner) handle(req request) {
	ctx := req.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var rep reply
	if req.fn != nil {
		rep.err = req.fn(r.m)
	} else {
		rep.res, rep.err = r.m.ProcessEvent(ctx, req.evt)
		r.afterEvent(ctx, req.evt, rep)
	}
	if req.reply != nil {
		req.reply <- rep
	}
}

func (r *Runner) afterEvent(ctx context.Context, evt primitives.Event, rep reply) {
	if rep.err != nil {
		r.logger.Warn("event failed", "machine", r.m.ID(), "event", evt.Type, "error", rep.err)
	}
	if r.persister != nil {
		if err := r.persister.Save(ctx, r.m.Snapshot()); err != nil {
			r.logger.Error("snapshot save failed", "machine", r.m.ID(), "error", err)
		}
	}
	if r.publisher != nil {
		md := MachineMetadata{
			MachineID: r.m.ID(),
			Outcome:   rep.res.Outcome,
			Active:    r.m.ActiveLeaves(),
			Timestamp: time.Now(),
		}
		if rep.err != nil {
			md.Error = rep.err.Error()
		}
		if err := r.publisher.Publish(ctx, evt, md); err != nil {
			r.logger.Error("publish failed", "machine", r.m.ID(), "error", err)
		}
	}
}

// Send enqueues an event for asynchronous processing. It never blocks; a full queue
// returns ErrQueueFull.
func (r *Runner) Send(evt primitives.Event) error {
	select {
	case <-r.done:
		return ErrRunnerStopped
	default:
	}
	select {
	case r.queue <- request{evt: evt}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dispatch processes evt and waits for its Result.
func (r *Runner) Dispatch(ctx context.Context, evt primitives.Event) (Result, error) {
	rep, err := r.call(ctx, request{ctx: ctx, evt: evt})
	if err != nil {
		return Result{Event: evt}, err
	}
	return rep.res, rep.err
}

// Do runs fn on the processing goroutine, between events.
func (r *Runner) Do(ctx context.Context, fn func(*Machine) error) error {
	rep, err := r.call(ctx, request{ctx: ctx, fn: fn})
	if err != nil {
		return err
	}
	return rep.err
}

func (r *Runner) call(ctx context.Context, req request) (reply, error) {
	req.reply = make(chan reply, 1)
	select {
	case <-r.done:
		return reply{}, ErrRunnerStopped
	default:
	}
	select {
	case r.queue <- req:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-r.done:
		return reply{}, ErrRunnerStopped
	}
	select {
	case rep := <-req.reply:
		return rep, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-r.stopped:
		return reply{}, ErrRunnerStopped
	}
}

// Snapshot returns the machine snapshot taken between events.
func (r *Runner) Snapshot(ctx context.Context) (MachineSnapshot, error) {
	var snap MachineSnapshot
	err := r.Do(ctx, func(m *Machine) error {
		snap = m.Snapshot()
		return nil
	})
	return snap, err
}

// Stop signals shutdown and waits for the processing goroutine to finish the current
// request. Queued requests are dropped. Safe to call multiple times.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	select {
	case <-r.stopped:
	default:
		// Never started.
		r.startOnce.Do(func() { close(r.stopped) })
		<-r.stopped
	}
}

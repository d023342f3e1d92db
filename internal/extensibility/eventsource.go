package extensibility

import (
	"context"
	"time"

	"github.com/comalice/hsmx/internal/primitives"
)

// ChannelEventSource is a core.EventSource backed by a Go channel.
type ChannelEventSource struct {
	ch chan primitives.Event
}

// NewChannelEventSource creates a source with the given buffer size.
func NewChannelEventSource(buffer int) *ChannelEventSource {
	return &ChannelEventSource{ch: make(chan primitives.Event, buffer)}
}

// Events returns the receive-only channel for events.
func (s *ChannelEventSource) Events() <-chan primitives.Event {
	return s.ch
}

// Send blocks until evt is buffered or ctx is done.
func (s *ChannelEventSource) Send(ctx context.Context, evt primitives.Event) error {
	select {
	case s.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the stream. Send must not be called afterwards.
func (s *ChannelEventSource) Close() {
	close(s.ch)
}

// TimerEventSource emits an event every period until ctx is cancelled. Heartbeats and
// timeouts reach the machine as ordinary events. Ticks are dropped while the buffer is
// full.
type TimerEventSource struct {
	ch chan primitives.Event
}

// NewTimerEventSource starts a periodic source.
func NewTimerEventSource(ctx context.Context, eventType string, data any, period time.Duration) *TimerEventSource {
	s := &TimerEventSource{ch: make(chan primitives.Event, 10)}
	go s.tick(ctx, time.NewTicker(period), eventType, data)
	return s
}

func (s *TimerEventSource) tick(ctx context.Context, ticker *time.Ticker, eventType string, data any) {
	defer close(s.ch)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case s.ch <- primitives.NewEvent(eventType, data):
			default:
			}
		case <-ctx.Done():
			return
		}
	}
}

// Events returns the event channel. It is closed once ctx is done.
func (s *TimerEventSource) Events() <-chan primitives.Event {
	return s.ch
}

// TimeoutEventSource emits a single event after d unless ctx is cancelled first.
type TimeoutEventSource struct {
	ch chan primitives.Event
}

// NewTimeoutEventSource arms a one-shot timeout.
func NewTimeoutEventSource(ctx context.Context, eventType string, d time.Duration) *TimeoutEventSource {
	s := &TimeoutEventSource{ch: make(chan primitives.Event, 1)}
	go func() {
		defer close(s.ch)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.ch <- primitives.NewEvent(eventType, nil)
		case <-ctx.Done():
		}
	}()
	return s
}

// Events returns the event channel. It is closed after the event or on cancellation.
func (s *TimeoutEventSource) Events() <-chan primitives.Event {
	return s.ch
}

package production

import (
	"context"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

// PublishedEvent bundles an event with its machine metadata for publishing.
type PublishedEvent struct {
	Event    primitives.Event     `json:"event" yaml:"event"`
	Metadata core.MachineMetadata `json:"metadata" yaml:"metadata"`
}

// ChannelPublisher forwards processed events to a Go channel. Publish never blocks: when
// the channel is full the event is dropped and counted.
type ChannelPublisher struct {
	ch      chan<- PublishedEvent
	dropped int
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- PublishedEvent) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, event primitives.Event, metadata core.MachineMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.ch <- PublishedEvent{Event: event, Metadata: metadata}:
	default:
		p.dropped++
	}
	return nil
}

// Dropped returns how many events were dropped. Call it from the publishing goroutine
// (core.Runner.Do) or after the runner stopped.
func (p *ChannelPublisher) Dropped() int {
	return p.dropped
}

func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}

// TransitionFeed is an observer that forwards transition records to a channel without
// blocking the machine. Records that do not fit are dropped.
type TransitionFeed struct {
	core.NopObserver
	ch chan core.TransitionRecord
}

// NewTransitionFeed creates a feed buffering up to size records.
func NewTransitionFeed(size int) *TransitionFeed {
	return &TransitionFeed{ch: make(chan core.TransitionRecord, size)}
}

// Records returns the receive side of the feed.
func (f *TransitionFeed) Records() <-chan core.TransitionRecord {
	return f.ch
}

func (f *TransitionFeed) OnTransition(rec core.TransitionRecord) {
	select {
	case f.ch <- rec:
	default:
	}
}

var (
	_ core.EventPublisher = (*ChannelPublisher)(nil)
	_ core.Observer       = (*TransitionFeed)(nil)
)

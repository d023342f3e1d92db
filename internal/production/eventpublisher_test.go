package production

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

func TestChannelPublisher(t *testing.T) {
	ch := make(chan PublishedEvent, 1)
	p := NewChannelPublisher(ch)
	ctx := context.Background()

	md := core.MachineMetadata{MachineID: "m", Outcome: core.OutcomeConsumed, Active: []string{"a"}}
	require.NoError(t, p.Publish(ctx, primitives.NewEvent("one", nil), md))
	require.NoError(t, p.Publish(ctx, primitives.NewEvent("two", nil), md))
	assert.Equal(t, 1, p.Dropped())

	got := <-ch
	assert.Equal(t, "one", got.Event.Type)
	assert.Equal(t, "m", got.Metadata.MachineID)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, p.Publish(cctx, primitives.NewEvent("three", nil), md), context.Canceled)

	require.NoError(t, p.Close())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestChannelPublisher_WithRunner(t *testing.T) {
	ch := make(chan PublishedEvent, 10)
	m, err := core.NewMachine(loadDoor(t), core.WithActionRunner(doorActions()))
	require.NoError(t, err)
	r := core.NewRunner(m, core.WithPublisher(NewChannelPublisher(ch)))
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	_, err = r.Dispatch(context.Background(), primitives.NewEvent("open", nil))
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, "open", got.Event.Type)
		assert.Equal(t, []string{"ajar"}, got.Metadata.Active)
		assert.Equal(t, core.OutcomeConsumed, got.Metadata.Outcome)
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}
}

func TestTransitionFeed(t *testing.T) {
	feed := NewTransitionFeed(1)
	m := newDoor(t, core.WithObserver(feed))
	send(t, m, "open", "push")

	rec := <-feed.Records()
	assert.Equal(t, "closed", rec.Source)
	assert.Equal(t, "opened", rec.Target)
	assert.Equal(t, []string{"opened", "ajar"}, rec.Entered)
	select {
	case <-feed.Records():
		t.Fatal("second record should have been dropped")
	default:
	}
}

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannelForJob(t *testing.T) {
	require.Equal(t, "forecast_job:abc-123", ChannelForJob("abc-123"))
}

func TestEventIsTerminal(t *testing.T) {
	require.True(t, Event{Kind: KindJobSucceeded}.IsTerminal())
	require.True(t, Event{Kind: KindJobFailed}.IsTerminal())
	require.False(t, Event{Kind: KindJobProgress}.IsTerminal())
	require.False(t, Event{Kind: KindHeartbeat}.IsTerminal())
}

func TestMemoryBusDeliversInPublishOrder(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()
	ch, unsubscribe, err := b.Subscribe(ctx, "forecast_job:1")
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, b.Publish(ctx, "forecast_job:1", Event{Kind: KindJobProgress, Progress: 10}))
	require.NoError(t, b.Publish(ctx, "forecast_job:1", Event{Kind: KindJobProgress, Progress: 50}))
	require.NoError(t, b.Publish(ctx, "forecast_job:1", Event{Kind: KindJobSucceeded}))

	select {
	case e := <-ch:
		require.Equal(t, 10, e.Progress)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first event")
	}
	e2 := <-ch
	require.Equal(t, 50, e2.Progress)
	e3 := <-ch
	require.True(t, e3.IsTerminal())
}

func TestMemoryBusPublishWithNoSubscribersIsNoop(t *testing.T) {
	b := NewMemoryBus()
	err := b.Publish(context.Background(), "forecast_job:unused", Event{Kind: KindHeartbeat})
	require.NoError(t, err)
}

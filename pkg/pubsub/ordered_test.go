package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	ids    []string
	delay  time.Duration
	closed bool
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, event *Event) error {
	r.mu.Lock()
	first := len(r.ids) == 0
	r.mu.Unlock()
	if first {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.ids = append(r.ids, event.ID)
	r.mu.Unlock()
	return nil
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

func TestOrderedPublisher_PreservesCallOrder(t *testing.T) {
	inner := &recordingPublisher{delay: 30 * time.Millisecond}
	p := NewOrderedPublisher(inner, 64)

	var want []string
	for i := 0; i < 20; i++ {
		evt, err := NewEvent(EventRoomMessageCreated, "01HROOM", map[string]int{"n": i})
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), RoomChannel("01HROOM"), evt))
		want = append(want, evt.ID)
	}

	require.NoError(t, p.Close())
	assert.Equal(t, want, inner.ids)
	assert.True(t, inner.closed)
}

func TestOrderedPublisher_FullQueueAndClosed(t *testing.T) {
	inner := &recordingPublisher{delay: 100 * time.Millisecond}
	p := NewOrderedPublisher(inner, 1)

	evt, err := NewEvent(EventRoomMessageCreated, "01HROOM", nil)
	require.NoError(t, err)

	// The worker holds the first event while the second fills the queue.
	require.NoError(t, p.Publish(context.Background(), RoomChannel("01HROOM"), evt))
	require.Eventually(t, func() bool { return len(p.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, p.Publish(context.Background(), RoomChannel("01HROOM"), evt))
	assert.ErrorIs(t, p.Publish(context.Background(), RoomChannel("01HROOM"), evt), ErrQueueFull)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), RoomChannel("01HROOM"), evt), ErrPublisherClosed)
	assert.Len(t, inner.ids, 2)
	assert.NoError(t, p.Close())
}

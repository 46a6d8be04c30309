package pubsub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/manobala/peer-chat/pkg/log"
)

var (
	ErrQueueFull       = errors.New("event queue full")
	ErrPublisherClosed = errors.New("publisher closed")
)

const orderedPublishTimeout = 2 * time.Second

type queuedEvent struct {
	channel string
	event   *Event
}

// OrderedPublisher hands events to the wrapped publisher from a single
// goroutine, in the order Publish was called. Publish never blocks; when
// the queue is full the event is dropped with ErrQueueFull.
type OrderedPublisher struct {
	inner  Publisher
	queue  chan queuedEvent
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewOrderedPublisher(inner Publisher, size int) *OrderedPublisher {
	if size <= 0 {
		size = 1024
	}
	p := &OrderedPublisher{
		inner: inner,
		queue: make(chan queuedEvent, size),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *OrderedPublisher) run() {
	defer close(p.done)
	for q := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), orderedPublishTimeout)
		if err := p.inner.Publish(ctx, q.channel, q.event); err != nil {
			l := log.L()
			l.Warn().Err(err).
				Str("event_type", q.event.Type).
				Str(log.FieldChannel, q.channel).
				Msg("failed to publish event")
		}
		cancel()
	}
}

func (p *OrderedPublisher) Publish(_ context.Context, channel string, event *Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- queuedEvent{channel: channel, event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close publishes what is still queued, then closes the wrapped publisher.
func (p *OrderedPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return p.inner.Close()
}

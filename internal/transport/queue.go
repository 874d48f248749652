package transport

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrQueueFull is returned by Queue.Publish when the backlog is full.
	ErrQueueFull = errors.New("publish queue full")
	// ErrQueueClosed is returned by Queue.Publish after Close.
	ErrQueueClosed = errors.New("publish queue closed")
)

// Queue is a Bus that hands messages to a goroutine publishing them on
// the wrapped bus in order. Publish never waits on the network; when the
// backlog is full the message is rejected.
type Queue struct {
	bus  Bus
	log  zerolog.Logger
	done chan struct{}

	mu     sync.Mutex
	ch     chan Message
	closed bool
}

// NewQueue starts draining into bus with room for size pending messages.
func NewQueue(bus Bus, size int, log zerolog.Logger) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		bus:  bus,
		log:  log,
		done: make(chan struct{}),
		ch:   make(chan Message, size),
	}
	go q.drain()
	return q
}

// Publish enqueues the message.
func (q *Queue) Publish(topic string, payload []byte, retained bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- Message{Topic: topic, Payload: payload, Retained: retained}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) drain() {
	defer close(q.done)
	for msg := range q.ch {
		if err := q.bus.Publish(msg.Topic, msg.Payload, msg.Retained); err != nil {
			q.log.Warn().Err(err).Str("topic", msg.Topic).Msg("publish failed")
		}
	}
}

// Close publishes what is already queued, then closes the wrapped bus.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	<-q.done
	return q.bus.Close()
}

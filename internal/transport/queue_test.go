package transport

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowBus blocks every Publish until release is closed.
type slowBus struct {
	FakeBus
	entered chan struct{}
	release chan struct{}
}

func newSlowBus() *slowBus {
	return &slowBus{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (b *slowBus) Publish(topic string, payload []byte, retained bool) error {
	b.entered <- struct{}{}
	<-b.release
	return b.FakeBus.Publish(topic, payload, retained)
}

func TestQueueDoesNotWaitForBus(t *testing.T) {
	bus := newSlowBus()
	q := NewQueue(bus, 2, zerolog.Nop())

	returned := make(chan struct{})
	go func() {
		assert.NoError(t, q.Publish("a", []byte("1"), false))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow bus")
	}

	<-bus.entered // "1" is now held by the drain goroutine
	require.NoError(t, q.Publish("a", []byte("2"), false))
	require.NoError(t, q.Publish("b", []byte("3"), true))
	assert.ErrorIs(t, q.Publish("a", []byte("4"), false), ErrQueueFull)

	close(bus.release)
	require.NoError(t, q.Close())

	msgs := bus.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "1", string(msgs[0].Payload))
	assert.Equal(t, "2", string(msgs[1].Payload))
	assert.Equal(t, Message{Topic: "b", Payload: []byte("3"), Retained: true}, msgs[2])
	assert.True(t, bus.Closed)
}

func TestQueuePublishAfterClose(t *testing.T) {
	bus := &FakeBus{}
	q := NewQueue(bus, 4, zerolog.Nop())

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Publish("a", nil, false), ErrQueueClosed)
	assert.Empty(t, bus.Messages())
}

func TestQueueBusErrorsAreLogged(t *testing.T) {
	bus := &FakeBus{PublishError: errors.New("broker down")}
	q := NewQueue(bus, 4, zerolog.Nop())

	require.NoError(t, q.Publish("a", []byte("1"), false))
	require.NoError(t, q.Close())
	assert.True(t, bus.Closed)
}

func TestQueueConcurrentPublish(t *testing.T) {
	bus := &FakeBus{}
	q := NewQueue(bus, 100, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, q.Publish("a", []byte("x"), false))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, q.Close())
	assert.Len(t, bus.Messages(), 100)
}

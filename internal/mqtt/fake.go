package mqtt

import (
	"sync"

	"github.com/sweeney/sun-timer/internal/transport"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Messages contains everything that was published.
	Messages []transport.Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// OnCommand receives payloads passed to Deliver.
	OnCommand CommandHandler
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

// Publish records the message.
func (f *FakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, transport.Message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

// Deliver simulates a message arriving on the command topic.
func (f *FakePublisher) Deliver(payload []byte) {
	if f.OnCommand != nil {
		f.OnCommand(payload)
	}
}

// OnTopic returns the payloads published to topic, in order.
func (f *FakePublisher) OnTopic(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]byte
	for _, m := range f.Messages {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = nil
	f.Closed = false
	f.PublishError = nil
}

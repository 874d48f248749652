package transport

import "sync"

// Message is one published message.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakeBus records published messages for tests.
type FakeBus struct {
	mu       sync.Mutex
	messages []Message

	// PublishError, if set, is returned by Publish.
	PublishError error
	Closed       bool
}

// Publish records the message.
func (f *FakeBus) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.messages = append(f.messages, Message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

// Close marks the bus closed.
func (f *FakeBus) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Messages returns a copy of everything published.
func (f *FakeBus) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

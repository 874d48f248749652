package mqtt

import (
	"sync"

	"github.com/rs/zerolog"
)

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// Not safe for concurrent use; the caller synchronises.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	overflow bool // true if any message was dropped since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

// push stores msg, overwriting the oldest message when full. It returns
// true the first time a message is dropped since the last drain.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	if r.count == r.capacity {
		first := !r.overflow
		r.overflow = true
		// head already points at the oldest
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		return first
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
	return false
}

func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.count == 0 {
		return nil
	}

	result := make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	r.overflow = false
	return result
}

func (r *ringBuffer) len() int {
	return r.count
}

// outbox holds messages published while disconnected and replays them
// once the connection is back. Records queue in order; a retained
// message only keeps the newest value per topic, so a burst of status
// updates cannot push records out of the ring.
type outbox struct {
	mu       sync.Mutex
	buf      *ringBuffer
	retained map[string]bufferedMsg
	topics   []string // retained topics in first-held order
	log      zerolog.Logger
}

func newOutbox(capacity int, log zerolog.Logger) *outbox {
	return &outbox{
		buf:      newRingBuffer(capacity),
		retained: make(map[string]bufferedMsg),
		log:      log,
	}
}

func (o *outbox) hold(msg bufferedMsg) {
	o.mu.Lock()
	if msg.retained {
		o.keepRetained(msg, true)
		o.mu.Unlock()
		return
	}
	dropped := o.buf.push(msg)
	o.mu.Unlock()
	if dropped {
		o.log.Warn().Int("capacity", o.buf.capacity).Msg("offline buffer full, dropping oldest")
	}
}

// keepRetained stores msg as the value for its topic. Without replace an
// existing value wins, which is how a failed replay re-holds an older one.
func (o *outbox) keepRetained(msg bufferedMsg, replace bool) {
	if _, ok := o.retained[msg.topic]; !ok {
		o.topics = append(o.topics, msg.topic)
	} else if !replace {
		return
	}
	o.retained[msg.topic] = msg
}

// drain empties the outbox: records first, then retained values.
func (o *outbox) drain() []bufferedMsg {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := o.buf.drainAll()
	for _, topic := range o.topics {
		msgs = append(msgs, o.retained[topic])
	}
	o.retained = make(map[string]bufferedMsg)
	o.topics = nil
	return msgs
}

// replay publishes every held message in order. Messages that fail are
// held again and replay stops, keeping their order for the next attempt.
func (o *outbox) replay(publish func(bufferedMsg) error) int {
	msgs := o.drain()

	for i, msg := range msgs {
		if err := publish(msg); err != nil {
			o.log.Warn().Err(err).Int("remaining", len(msgs)-i).Msg("replay interrupted")
			o.requeue(msgs[i:])
			return i
		}
	}
	return len(msgs)
}

// requeue puts unsent messages back ahead of anything held meanwhile.
func (o *outbox) requeue(msgs []bufferedMsg) {
	o.mu.Lock()
	defer o.mu.Unlock()

	newer := o.buf.drainAll()
	for _, m := range msgs {
		if m.retained {
			o.keepRetained(m, false)
			continue
		}
		o.buf.push(m)
	}
	for _, m := range newer {
		o.buf.push(m)
	}
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.len() + len(o.retained)
}

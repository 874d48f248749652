package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func pushN(rb *ringBuffer, from, n int) (dropped int) {
	for i := from; i < from+n; i++ {
		if rb.push(bufferedMsg{topic: "sun-timer/state", payload: []byte{byte(i)}}) {
			dropped++
		}
	}
	return dropped
}

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestRingBufferDrainOrder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		want     []byte
	}{
		{"empty", 4, 0, nil},
		{"partial", 4, 3, []byte{0, 1, 2}},
		{"full", 4, 4, []byte{0, 1, 2, 3}},
		{"overwrites oldest", 4, 7, []byte{3, 4, 5, 6}},
		{"wraps twice", 3, 8, []byte{5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity)
			pushN(rb, 0, tt.pushed)

			got := payloads(rb.drainAll())
			if string(got) != string(tt.want) {
				t.Errorf("drain: got %v, want %v", got, tt.want)
			}
			if rb.len() != 0 {
				t.Errorf("len after drain: got %d, want 0", rb.len())
			}
		})
	}
}

func TestRingBufferOverflowReportedOnce(t *testing.T) {
	rb := newRingBuffer(2)

	if dropped := pushN(rb, 0, 2); dropped != 0 {
		t.Fatalf("no drop expected while filling, got %d", dropped)
	}
	if dropped := pushN(rb, 2, 5); dropped != 1 {
		t.Errorf("overflow should be reported once, got %d", dropped)
	}

	rb.drainAll()
	pushN(rb, 0, 2)
	if dropped := pushN(rb, 2, 1); dropped != 1 {
		t.Errorf("overflow should be reported again after drain, got %d", dropped)
	}
}

func TestRingBufferReuseAfterDrain(t *testing.T) {
	rb := newRingBuffer(5)
	pushN(rb, 0, 3)
	rb.drainAll()

	pushN(rb, 10, 4)
	if rb.len() != 4 {
		t.Fatalf("len: got %d, want 4", rb.len())
	}
	got := payloads(rb.drainAll())
	if string(got) != string([]byte{10, 11, 12, 13}) {
		t.Errorf("second cycle: got %v", got)
	}
}

func TestRingBufferKeepsMessageFields(t *testing.T) {
	rb := newRingBuffer(1)
	rb.push(bufferedMsg{topic: "sun-timer/status", payload: []byte(`{"fill":"red"}`), qos: 1, retained: true})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != "sun-timer/status" || string(m.payload) != `{"fill":"red"}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	rb.push(bufferedMsg{topic: "a"})
	rb.push(bufferedMsg{topic: "b"})
	got := rb.drainAll()
	if len(got) != 1 || got[0].topic != "b" {
		t.Errorf("got %+v, want only the newest message", got)
	}
}

func TestOutboxReplay(t *testing.T) {
	ob := newOutbox(10, zerolog.Nop())
	for i := 0; i < 3; i++ {
		ob.hold(bufferedMsg{topic: "sun-timer/state", payload: []byte{byte(i)}})
	}

	var sent []byte
	n := ob.replay(func(m bufferedMsg) error {
		sent = append(sent, m.payload[0])
		return nil
	})
	if n != 3 {
		t.Errorf("replayed: got %d, want 3", n)
	}
	if string(sent) != string([]byte{0, 1, 2}) {
		t.Errorf("order: got %v", sent)
	}
	if ob.len() != 0 {
		t.Errorf("len after replay: got %d, want 0", ob.len())
	}
}

func TestOutboxReplayInterrupted(t *testing.T) {
	ob := newOutbox(10, zerolog.Nop())
	for i := 0; i < 4; i++ {
		ob.hold(bufferedMsg{topic: "sun-timer/state", payload: []byte{byte(i)}})
	}

	calls := 0
	n := ob.replay(func(m bufferedMsg) error {
		calls++
		if calls == 2 {
			return errors.New("connection lost")
		}
		return nil
	})
	if n != 1 {
		t.Errorf("replayed: got %d, want 1", n)
	}
	if ob.len() != 3 {
		t.Fatalf("held again: got %d, want 3", ob.len())
	}

	var sent []byte
	ob.replay(func(m bufferedMsg) error {
		sent = append(sent, m.payload[0])
		return nil
	})
	if string(sent) != string([]byte{1, 2, 3}) {
		t.Errorf("second replay: got %v, want [1 2 3]", sent)
	}
}

func TestOutboxKeepsRecordsThroughStatusBurst(t *testing.T) {
	ob := newOutbox(4, zerolog.Nop())
	ob.hold(bufferedMsg{topic: "sun-timer/status", payload: []byte("s0"), retained: true})
	ob.hold(bufferedMsg{topic: "sun-timer/state", payload: []byte("on")})
	for i := 1; i <= 200; i++ {
		ob.hold(bufferedMsg{topic: "sun-timer/status", payload: []byte(fmt.Sprintf("s%d", i)), retained: true})
	}
	ob.hold(bufferedMsg{topic: "sun-timer/state", payload: []byte("off")})

	if ob.len() != 3 {
		t.Fatalf("len: got %d, want 3", ob.len())
	}

	var sent []string
	ob.replay(func(m bufferedMsg) error {
		sent = append(sent, string(m.payload))
		return nil
	})
	want := []string{"on", "off", "s200"}
	if strings.Join(sent, ",") != strings.Join(want, ",") {
		t.Errorf("replay: got %v, want %v", sent, want)
	}
}

func TestOutboxRequeueKeepsNewerRetained(t *testing.T) {
	ob := newOutbox(4, zerolog.Nop())
	ob.hold(bufferedMsg{topic: "sun-timer/state", payload: []byte("on")})
	ob.hold(bufferedMsg{topic: "sun-timer/status", payload: []byte("old"), retained: true})

	ob.replay(func(m bufferedMsg) error {
		// a newer status arrives while the replay is failing
		ob.hold(bufferedMsg{topic: "sun-timer/status", payload: []byte("new"), retained: true})
		ob.hold(bufferedMsg{topic: "sun-timer/state", payload: []byte("off")})
		return errors.New("connection lost")
	})

	var sent []string
	ob.replay(func(m bufferedMsg) error {
		sent = append(sent, string(m.payload))
		return nil
	})
	want := []string{"on", "off", "new"}
	if strings.Join(sent, ",") != strings.Join(want, ",") {
		t.Errorf("replay: got %v, want %v", sent, want)
	}
}

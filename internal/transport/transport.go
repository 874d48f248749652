// Package transport encodes runner output for message buses and decodes
// inbound commands. The mqtt, natsbus and kafkabus packages share it.
package transport

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/sweeney/sun-timer/internal/logic"
)

// Availability payloads.
const (
	Online  = "online"
	Offline = "offline"
)

// Bus publishes raw messages.
type Bus interface {
	// Publish sends payload to topic. Errors are reported but must not
	// crash the process.
	Publish(topic string, payload []byte, retained bool) error

	// Close disconnects from the broker.
	Close() error
}

// Topics names the per-purpose topics below a common base.
type Topics struct {
	State        string
	Debug        string
	Status       string
	Command      string
	Availability string
}

// NewTopics builds topics as base+sep+name, e.g. "sun-timer/state".
func NewTopics(base, sep string) Topics {
	base = strings.TrimSuffix(base, sep)
	join := func(name string) string { return base + sep + name }
	return Topics{
		State:        join("state"),
		Debug:        join("debug"),
		Status:       join("status"),
		Command:      join("set"),
		Availability: join("availability"),
	}
}

// Sink is a logic.Output that encodes records and publishes them on a bus.
type Sink struct {
	bus    Bus
	topics Topics
	log    zerolog.Logger
}

// NewSink creates a Sink publishing to bus.
func NewSink(bus Bus, topics Topics, log zerolog.Logger) *Sink {
	return &Sink{bus: bus, topics: topics, log: log}
}

// Send publishes the change record on the state topic and the debug
// record on the debug topic.
func (s *Sink) Send(change *logic.ChangeRecord, debug *logic.DebugRecord) {
	if change != nil {
		s.publish(s.topics.State, change, false)
	}
	if debug != nil {
		s.publish(s.topics.Debug, debug, false)
	}
}

// Status publishes the status triple, retained.
func (s *Sink) Status(st logic.Status) {
	s.publish(s.topics.Status, st, true)
}

func (s *Sink) publish(topic string, v any, retained bool) {
	data, err := Encode(v)
	if err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("encode")
		return
	}
	if err := s.bus.Publish(topic, data, retained); err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
	}
}

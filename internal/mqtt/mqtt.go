// Package mqtt publishes runner output to an MQTT broker and receives
// commands from it, with an abstraction for testing.
package mqtt

import (
	"github.com/sweeney/sun-timer/internal/transport"
)

// DefaultBase is the topic prefix when none is configured.
const DefaultBase = "sun-timer"

// Publisher publishes encoded messages to MQTT.
type Publisher interface {
	transport.Bus
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Topics returns the MQTT topics below base.
func Topics(base string) transport.Topics {
	if base == "" {
		base = DefaultBase
	}
	return transport.NewTopics(base, "/")
}

// CommandHandler receives the raw payload of a message on the command
// topic.
type CommandHandler func(payload []byte)

package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeney/sun-timer/internal/transport"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string // generated when empty
	Topics   transport.Topics
	// BufferSize is the number of messages kept while disconnected.
	BufferSize int
	// OnCommand, if set, receives every message on Topics.Command.
	OnCommand CommandHandler
	Log       zerolog.Logger
}

// DefaultBufferSize is used when Options.BufferSize is zero.
const DefaultBufferSize = 100

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options
	log    zerolog.Logger
	outbox *outbox
}

// NewRealPublisher creates a publisher connected to the given broker. The
// availability topic carries "online" while connected and "offline" as
// the last will.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	if opts.ClientID == "" {
		opts.ClientID = "sun-timer-" + uuid.NewString()[:8]
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = DefaultBufferSize
	}

	log := opts.Log.With().Str("component", "mqtt").Str("broker", opts.Broker).Logger()
	p := &RealPublisher{
		opts:   opts,
		log:    log,
		outbox: newOutbox(opts.BufferSize, log),
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetWill(opts.Topics.Availability, transport.Offline, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.log.Info().Msg("connected")

	c.Publish(p.opts.Topics.Availability, 1, true, transport.Online)

	if p.opts.OnCommand != nil {
		token := c.Subscribe(p.opts.Topics.Command, 1, func(_ paho.Client, m paho.Message) {
			p.opts.OnCommand(m.Payload())
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			p.log.Error().Err(token.Error()).Str("topic", p.opts.Topics.Command).Msg("subscribe")
		}
	}

	if n := p.outbox.replay(p.send); n > 0 {
		p.log.Info().Int("messages", n).Msg("replayed buffered messages")
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warn().Err(err).Msg("connection lost")
}

// Publish sends a message to the broker, or buffers it while the
// connection is down. Retained messages use QoS 1.
func (p *RealPublisher) Publish(topic string, payload []byte, retained bool) error {
	msg := bufferedMsg{topic: topic, payload: payload, retained: retained}
	if retained {
		msg.qos = 1
	}

	if !p.client.IsConnectionOpen() {
		p.outbox.hold(msg)
		return nil
	}
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the connection to the broker is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close marks the timer offline and disconnects from the broker.
func (p *RealPublisher) Close() error {
	if n := p.outbox.len(); n > 0 {
		p.log.Warn().Int("messages", n).Msg("closing with unsent buffered messages")
	}
	if p.client.IsConnectionOpen() {
		token := p.client.Publish(p.opts.Topics.Availability, 1, true, transport.Offline)
		token.WaitTimeout(time.Second)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

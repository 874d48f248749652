// Package natsbus publishes runner output on NATS subjects and receives
// commands from a subject.
package natsbus

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sweeney/sun-timer/internal/transport"
)

// DefaultBase is the subject prefix when none is configured.
const DefaultBase = "sun-timer"

// Subjects returns the NATS subjects below base.
func Subjects(base string) transport.Topics {
	if base == "" {
		base = DefaultBase
	}
	return transport.NewTopics(base, ".")
}

// Config configures a Bus.
type Config struct {
	URL           string
	Name          string // connection name, generated when empty
	Subjects      transport.Topics
	MaxReconnects int
	ReconnectWait time.Duration
	// OnCommand, if set, receives every message on Subjects.Command.
	OnCommand func(payload []byte)
}

// Bus is a transport.Bus over a NATS connection. NATS has no retained
// messages, so the retained flag is ignored.
type Bus struct {
	nc       *nats.Conn
	sub      *nats.Subscription
	subjects transport.Topics
	log      zerolog.Logger
}

// Connect dials the server and subscribes to the command subject.
func Connect(cfg Config, log zerolog.Logger) (*Bus, error) {
	if cfg.Name == "" {
		cfg.Name = "sun-timer-" + uuid.NewString()[:8]
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	log = log.With().Str("component", "nats").Str("url", cfg.URL).Logger()

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	b := &Bus{nc: nc, subjects: cfg.Subjects, log: log}
	if cfg.OnCommand != nil {
		b.sub, err = nc.Subscribe(cfg.Subjects.Command, func(m *nats.Msg) {
			cfg.OnCommand(m.Data)
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("subscribe %s: %w", cfg.Subjects.Command, err)
		}
	}

	if err := b.Publish(cfg.Subjects.Availability, []byte(transport.Online), true); err != nil {
		log.Warn().Err(err).Msg("publish availability")
	}
	log.Info().Msg("connected")
	return b, nil
}

// Publish sends payload on subject.
func (b *Bus) Publish(subject string, payload []byte, _ bool) error {
	if err := b.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether the connection is up.
func (b *Bus) IsConnected() bool {
	return b.nc.IsConnected()
}

// Close announces offline and drains the connection.
func (b *Bus) Close() error {
	if err := b.Publish(b.subjects.Availability, []byte(transport.Offline), true); err != nil {
		b.log.Warn().Err(err).Msg("publish availability")
	}
	if err := b.nc.Drain(); err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

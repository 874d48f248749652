// Package kafkabus publishes runner output to Kafka topics and consumes
// commands from a topic.
package kafkabus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/sweeney/sun-timer/internal/transport"
)

// DefaultBase is the topic prefix when none is configured.
const DefaultBase = "sun-timer"

// Topics returns the Kafka topics below base.
func Topics(base string) transport.Topics {
	if base == "" {
		base = DefaultBase
	}
	return transport.NewTopics(base, ".")
}

// Config configures a Bus.
type Config struct {
	Brokers []string
	GroupID string
	Topics  transport.Topics
	// OnCommand, if set, receives every message on Topics.Command.
	OnCommand func(payload []byte)
}

// Bus is a transport.Bus over Kafka. Retained messages are written with
// the topic name as key so a compacted topic keeps the latest one.
type Bus struct {
	writer *kafka.Writer
	reader *kafka.Reader
	log    zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the writer and, when OnCommand is set, starts consuming
// the command topic until Close.
func New(cfg Config, log zerolog.Logger) *Bus {
	b := &Bus{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
			BatchTimeout:           10 * time.Millisecond,
		},
		log: log.With().Str("component", "kafka").Logger(),
	}

	if cfg.OnCommand == nil {
		return b
	}

	b.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topics.Command,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.wg.Add(1)
	go b.consume(ctx, cfg.OnCommand)
	return b
}

func (b *Bus) consume(ctx context.Context, handle func([]byte)) {
	defer b.wg.Done()
	for {
		m, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			b.log.Warn().Err(err).Msg("read command")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		handle(m.Value)
	}
}

// Publish writes payload to topic.
func (b *Bus) Publish(topic string, payload []byte, retained bool) error {
	msg := kafka.Message{Topic: topic, Value: payload}
	if retained {
		msg.Key = []byte(topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}
	return nil
}

// Close stops the consumer and flushes the writer.
func (b *Bus) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	var errs []error
	if b.reader != nil {
		errs = append(errs, b.reader.Close())
	}
	b.wg.Wait()
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/sun-timer/internal/astro"
	"github.com/sweeney/sun-timer/internal/clock"
	"github.com/sweeney/sun-timer/internal/config"
	"github.com/sweeney/sun-timer/internal/gpio"
	"github.com/sweeney/sun-timer/internal/kafkabus"
	"github.com/sweeney/sun-timer/internal/logic"
	"github.com/sweeney/sun-timer/internal/metrics"
	"github.com/sweeney/sun-timer/internal/mqtt"
	"github.com/sweeney/sun-timer/internal/natsbus"
	"github.com/sweeney/sun-timer/internal/status"
	"github.com/sweeney/sun-timer/internal/transport"
	"github.com/sweeney/sun-timer/internal/web"
)

// statusInterval is how often the tracker is refreshed from the runner.
const statusInterval = time.Second

// commandQueue bounds inbound commands waiting for the run loop.
const commandQueue = 32

// publishQueue bounds outbound messages waiting for each bus.
const publishQueue = 64

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the timer daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runDaemon(cfg, logger)
		},
	}
}

// commandInbox queues raw command payloads from the transports for the
// run loop.
type commandInbox struct {
	ch  chan []byte
	log zerolog.Logger
}

func newCommandInbox(size int, log zerolog.Logger) *commandInbox {
	return &commandInbox{ch: make(chan []byte, size), log: log}
}

// Push enqueues payload, dropping it when the queue is full.
func (in *commandInbox) Push(payload []byte) {
	select {
	case in.ch <- payload:
	default:
		in.log.Warn().Bytes("payload", payload).Msg("command queue full, dropping")
	}
}

// connections reports whether any message bus is connected.
type connections []mqtt.ConnectionStatus

func (c connections) IsConnected() bool {
	for _, s := range c {
		if s.IsConnected() {
			return true
		}
	}
	return false
}

func runDaemon(cfg *config.Config, logger zerolog.Logger) error {
	clk := clock.Real()
	provider := newProvider(cfg)
	inbox := newCommandInbox(commandQueue, logger)

	tracker := status.NewTracker(clk, cfg.Status())
	m := metrics.New()
	outputs := logic.Outputs{tracker, m}

	var (
		buses []transport.Bus
		conns connections
	)
	defer func() {
		for _, b := range buses {
			if err := b.Close(); err != nil {
				logger.Warn().Err(err).Msg("close transport")
			}
		}
	}()

	if cfg.MQTT.Broker != "" {
		topics := mqtt.Topics(cfg.MQTT.BaseTopic)
		pub, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Topics:     topics,
			BufferSize: cfg.MQTT.BufferSize,
			OnCommand:  inbox.Push,
			Log:        logger,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		log := logger.With().Str("component", "mqtt").Logger()
		q := transport.NewQueue(pub, publishQueue, log)
		buses = append(buses, q)
		conns = append(conns, pub)
		outputs = append(outputs, transport.NewSink(q, topics, log))
	}

	if cfg.NATS.URL != "" {
		subjects := natsbus.Subjects(cfg.NATS.BaseSubject)
		nb, err := natsbus.Connect(natsbus.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			Subjects:      subjects,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
			OnCommand:     inbox.Push,
		}, logger)
		if err != nil {
			return fmt.Errorf("init nats: %w", err)
		}
		log := logger.With().Str("component", "nats").Logger()
		q := transport.NewQueue(nb, publishQueue, log)
		buses = append(buses, q)
		conns = append(conns, nb)
		outputs = append(outputs, transport.NewSink(q, subjects, log))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		topics := kafkabus.Topics(cfg.Kafka.BaseTopic)
		kc := kafkabus.Config{Brokers: cfg.Kafka.Brokers, GroupID: cfg.Kafka.GroupID, Topics: topics}
		if cfg.Kafka.Commands {
			kc.OnCommand = inbox.Push
		}
		log := logger.With().Str("component", "kafka").Logger()
		q := transport.NewQueue(kafkabus.New(kc, logger), publishQueue, log)
		buses = append(buses, q)
		outputs = append(outputs, transport.NewSink(q, topics, log))
	}

	if cfg.GPIO.Enabled {
		w, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIO.Line, cfg.GPIO.ActiveLow)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer w.Close()
		outputs = append(outputs, gpio.NewRelay(w, logger))
	}

	runner, err := logic.New(cfg.Runner(), clk, provider, outputs, logger)
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}

	if cfg.HTTP.Addr != "" {
		var events web.EventsFunc
		if cfg.HasPosition() {
			events = eventsFunc(clk, provider)
		}
		srv := web.New(cfg.HTTP.Addr, tracker, events, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server error")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	logger.Info().
		Str("start", cfg.Schedule.Start.String()).
		Str("end", cfg.Schedule.End.String()).
		Int("start_offset", cfg.Schedule.StartOffset).
		Int("end_offset", cfg.Schedule.EndOffset).
		Bool("wrap_midnight", cfg.Schedule.WrapMidnight).
		Float64("latitude", cfg.Position.Latitude).
		Float64("longitude", cfg.Position.Longitude).
		Int("transports", len(buses)).
		Msg("started")

	runner.Start()
	defer runner.Cleanup()

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(runner, tracker, m, conns, inbox.ch, ticker.C, sigCh, logger)
}

// runLoop applies queued commands and refreshes the status tracker until
// a signal arrives.
func runLoop(runner *logic.Runner, tracker *status.Tracker, m *metrics.Metrics, conn mqtt.ConnectionStatus, cmds <-chan []byte, tick <-chan time.Time, sig <-chan os.Signal, logger zerolog.Logger) error {
	refresh := func() {
		tracker.Update(runner.Snapshot())
		if conn != nil {
			tracker.SetBusConnected(conn.IsConnected())
		}
	}
	refresh()

	for {
		select {
		case s := <-sig:
			logger.Info().Str("signal", s.String()).Msg("shutting down")
			return nil

		case payload := <-cmds:
			err := handlePayload(runner, payload)
			m.ObserveCommand(err)
			if err != nil {
				logger.Warn().Err(err).Bytes("payload", payload).Msg("command rejected")
			} else {
				logger.Info().Bytes("payload", payload).Msg("command applied")
			}
			refresh()

		case <-tick:
			refresh()
		}
	}
}

// handlePayload decodes one inbound message. A boundary update is applied
// first; a command in the same message follows it.
func handlePayload(runner *logic.Runner, payload []byte) error {
	upd, hasSchedule, err := transport.DecodeSchedule(payload)
	if err != nil {
		return err
	}
	if hasSchedule {
		if err := runner.SetStartEndTime(upd); err != nil {
			return err
		}
	}

	cmd, err := transport.DecodeCommand(payload)
	if err != nil {
		return err
	}
	if hasSchedule && cmd.Payload == nil && !cmd.Reset {
		return nil
	}
	return runner.HandleCommand(cmd)
}

func eventsFunc(clk clock.Clock, provider astro.Provider) web.EventsFunc {
	return func() []astro.Entry {
		return astro.Catalog(provider.Day(clk.Now()))
	}
}

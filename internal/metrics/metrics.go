// Package metrics exposes Prometheus collectors for the timer.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/sun-timer/internal/logic"
)

// Metrics is a logic.Output that counts publishes and tracks the current
// state. Commands are counted through ObserveCommand.
type Metrics struct {
	registry *prometheus.Registry

	publishes *prometheus.CounterVec
	commands  *prometheus.CounterVec
	on        prometheus.Gauge
	override  *prometheus.GaugeVec
	timeout   prometheus.Gauge
}

// New creates the collectors on a private registry, together with the Go
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suntimer_publishes_total",
			Help: "Change records published, by trigger and override mode.",
		}, []string{"trigger", "state"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "suntimer_commands_total",
			Help: "Commands received, by result.",
		}, []string{"result"}),
		on: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "suntimer_output_on",
			Help: "Effective output state (1 on, 0 off).",
		}),
		override: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "suntimer_override_mode",
			Help: "Current override mode (1 for the active mode).",
		}, []string{"mode"}),
		timeout: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "suntimer_override_remaining_minutes",
			Help: "Minutes left on the current override.",
		}),
	}

	m.registry.MustRegister(
		m.publishes,
		m.commands,
		m.on,
		m.override,
		m.timeout,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, mode := range []logic.Mode{logic.ModeAuto, logic.ModeTempOn, logic.ModeTempOff} {
		m.override.WithLabelValues(string(mode)).Set(0)
	}
	m.override.WithLabelValues(string(logic.ModeAuto)).Set(1)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Send implements logic.Output.
func (m *Metrics) Send(change *logic.ChangeRecord, _ *logic.DebugRecord) {
	if change == nil {
		return
	}
	m.publishes.WithLabelValues(string(change.Trigger), string(change.State)).Inc()
	for _, mode := range []logic.Mode{logic.ModeAuto, logic.ModeTempOn, logic.ModeTempOff} {
		v := 0.0
		if mode == change.State {
			v = 1
		}
		m.override.WithLabelValues(string(mode)).Set(v)
	}
	m.timeout.Set(change.Timeout)
}

// Status implements logic.Output.
func (m *Metrics) Status(st logic.Status) {
	if st.On() {
		m.on.Set(1)
	} else {
		m.on.Set(0)
	}
}

// ObserveCommand counts a handled command by its outcome.
func (m *Metrics) ObserveCommand(err error) {
	m.commands.WithLabelValues(commandResult(err)).Inc()
}

func commandResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, logic.ErrUnrecognizedCommand):
		return "unrecognized"
	case errors.Is(err, logic.ErrInvalidTimeout):
		return "invalid_timeout"
	default:
		return "error"
	}
}

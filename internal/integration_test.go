package internal

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sweeney/sun-timer/internal/clock"
	"github.com/sweeney/sun-timer/internal/gpio"
	"github.com/sweeney/sun-timer/internal/logic"
	"github.com/sweeney/sun-timer/internal/metrics"
	"github.com/sweeney/sun-timer/internal/mqtt"
	"github.com/sweeney/sun-timer/internal/schedule"
	"github.com/sweeney/sun-timer/internal/status"
	"github.com/sweeney/sun-timer/internal/transport"
)

// Monday 2024-06-03, ten o'clock
var monday = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

type system struct {
	clk     *clock.FakeClock
	runner  *logic.Runner
	pub     *mqtt.FakePublisher
	topics  transport.Topics
	relay   *gpio.FakeWriter
	tracker *status.Tracker
	metrics *metrics.Metrics
	errs    []error
}

func baseConfig() logic.Config {
	return logic.Config{
		Schedule:         schedule.Config{Start: schedule.At(601), End: schedule.At(700)},
		Rules:            schedule.Rules{{Kind: schedule.Include}},
		Topic:            "garden/lights",
		OnPayload:        logic.Template{Type: logic.PayloadString, Value: "on"},
		OffPayload:       logic.Template{Type: logic.PayloadString, Value: "off"},
		OnTimeout:        1440,
		OffTimeout:       1440,
		PublishOnStartup: true,
		RepeatInterval:   time.Minute,
		SendEmptyPayload: true,
	}
}

// newSystem wires the runner to a fake MQTT bus, a fake relay, the status
// tracker and metrics, the way the daemon does.
func newSystem(t *testing.T, cfg logic.Config, now time.Time) *system {
	t.Helper()
	s := &system{
		clk:     clock.Fake(now),
		pub:     mqtt.NewFakePublisher(),
		topics:  mqtt.Topics("sun-timer"),
		relay:   gpio.NewFakeWriter(),
		metrics: metrics.New(),
	}
	s.tracker = status.NewTracker(s.clk, status.Config{Topic: cfg.Topic})

	outputs := logic.Outputs{
		transport.NewSink(s.pub, s.topics, zerolog.Nop()),
		gpio.NewRelay(s.relay, zerolog.Nop()),
		s.tracker,
		s.metrics,
	}
	runner, err := logic.New(cfg, s.clk, nil, outputs, zerolog.Nop())
	if err != nil {
		t.Fatalf("logic.New: %v", err)
	}
	s.runner = runner

	s.pub.OnCommand = func(payload []byte) {
		cmd, err := transport.DecodeCommand(payload)
		if err == nil {
			err = runner.HandleCommand(cmd)
		}
		s.metrics.ObserveCommand(err)
		if err != nil {
			s.errs = append(s.errs, err)
		}
	}

	runner.Start()
	t.Cleanup(runner.Cleanup)
	return s
}

func (s *system) states(t *testing.T) []logic.ChangeRecord {
	t.Helper()
	var out []logic.ChangeRecord
	for _, p := range s.pub.OnTopic(s.topics.State) {
		var rec logic.ChangeRecord
		if err := json.Unmarshal(p, &rec); err != nil {
			t.Fatalf("invalid state JSON: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func (s *system) lastStatus(t *testing.T) logic.Status {
	t.Helper()
	msgs := s.pub.OnTopic(s.topics.Status)
	if len(msgs) == 0 {
		t.Fatal("no status published")
	}
	var st logic.Status
	if err := json.Unmarshal(msgs[len(msgs)-1], &st); err != nil {
		t.Fatalf("invalid status JSON: %v", err)
	}
	return st
}

func (s *system) metricsText(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

// TestIntegrationFullFlow runs a morning: startup, the scheduled switch
// on, a manual override that expires, and the scheduled switch off.
func TestIntegrationFullFlow(t *testing.T) {
	s := newSystem(t, baseConfig(), monday)

	s.clk.Advance(logic.StartupDelay)
	s.clk.AdvanceTo(monday.Add(3 * time.Minute))

	s.pub.Deliver([]byte(`{"payload":"off","timeout":10}`))
	if st := s.lastStatus(t); st.Text != "Temporary OFF for 10mins" || st.Shape != logic.ShapeRing {
		t.Errorf("status after override: got %+v", st)
	}

	s.clk.AdvanceTo(monday.Add(13 * time.Minute))
	s.clk.AdvanceTo(monday.Add(101 * time.Minute))

	if len(s.errs) != 0 {
		t.Fatalf("command errors: %v", s.errs)
	}

	type want struct {
		state   logic.Mode
		payload string
		trigger logic.Trigger
	}
	wants := []want{
		{logic.ModeAuto, "off", logic.TriggerTimer},    // startup
		{logic.ModeAuto, "on", logic.TriggerTimer},     // 10:02
		{logic.ModeTempOff, "off", logic.TriggerInput}, // override
		{logic.ModeAuto, "on", logic.TriggerTimer},     // override expired 10:13
		{logic.ModeAuto, "off", logic.TriggerTimer},    // 11:40
	}
	states := s.states(t)
	if len(states) != len(wants) {
		t.Fatalf("expected %d state messages, got %d", len(wants), len(states))
	}
	for i, w := range wants {
		got := states[i]
		if got.State != w.state || got.Payload != w.payload || got.Trigger != w.trigger {
			t.Errorf("state %d: got %s/%v/%s, want %s/%s/%s",
				i, got.State, got.Payload, got.Trigger, w.state, w.payload, w.trigger)
		}
		if got.Topic != "garden/lights" {
			t.Errorf("state %d: topic %q", i, got.Topic)
		}
	}
	if states[2].Timeout != 10 || !states[2].TemporaryManual {
		t.Errorf("override record: got %+v", states[2])
	}

	wantRelay := []bool{false, true, false, true, false}
	if len(s.relay.Values) != len(wantRelay) {
		t.Fatalf("relay writes: got %v, want %v", s.relay.Values, wantRelay)
	}
	for i, v := range wantRelay {
		if s.relay.Values[i] != v {
			t.Errorf("relay write %d: got %v, want %v", i, s.relay.Values[i], v)
		}
	}

	snap := s.runner.Snapshot()
	if snap.Counts.On != 1 || snap.Counts.Off != 1 {
		t.Errorf("counts: got %+v, want 1/1", snap.Counts)
	}
	if got := s.tracker.Snapshot().Publishes; got != 5 {
		t.Errorf("tracker publishes: got %d, want 5", got)
	}

	text := s.metricsText(t)
	for _, line := range []string{
		`suntimer_commands_total{result="ok"} 1`,
		`suntimer_publishes_total{state="auto",trigger="timer"} 4`,
		`suntimer_output_on 0`,
	} {
		if !strings.Contains(text, line) {
			t.Errorf("metrics missing %q", line)
		}
	}
}

func TestIntegrationStatusRetained(t *testing.T) {
	s := newSystem(t, baseConfig(), monday)
	s.clk.Advance(logic.StartupDelay)

	for _, m := range s.pub.Messages {
		switch m.Topic {
		case s.topics.Status:
			if !m.Retained {
				t.Error("status should be retained")
			}
		case s.topics.State:
			if m.Retained {
				t.Error("state should not be retained")
			}
		}
	}
	if st := s.lastStatus(t); st.Fill != logic.FillRed {
		t.Errorf("status fill: got %q, want red", st.Fill)
	}
}

func TestIntegrationInvalidCommand(t *testing.T) {
	s := newSystem(t, baseConfig(), monday)
	s.clk.Advance(logic.StartupDelay)

	s.pub.Deliver([]byte("dim"))
	s.pub.Deliver([]byte(`{"payload":"on","timeout":"later"}`))

	if len(s.errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", s.errs)
	}
	if !errors.Is(s.errs[0], logic.ErrUnrecognizedCommand) {
		t.Errorf("errs[0]: got %v", s.errs[0])
	}
	if !errors.Is(s.errs[1], logic.ErrInvalidTimeout) {
		t.Errorf("errs[1]: got %v", s.errs[1])
	}
	if got := len(s.states(t)); got != 1 {
		t.Errorf("expected only the startup record, got %d", got)
	}
	text := s.metricsText(t)
	if !strings.Contains(text, `suntimer_commands_total{result="unrecognized"} 1`) {
		t.Error("metrics missing unrecognized command")
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	s := newSystem(t, baseConfig(), monday)
	s.pub.PublishError = errors.New("broker down")

	s.clk.Advance(logic.StartupDelay)
	s.clk.AdvanceTo(monday.Add(3 * time.Minute))

	if len(s.pub.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(s.pub.Messages))
	}
	if on, ok := s.relay.Last(); !ok || !on {
		t.Error("relay should still follow the schedule")
	}
	if got := s.tracker.Snapshot().Publishes; got != 2 {
		t.Errorf("tracker publishes: got %d, want 2", got)
	}
}

func TestIntegrationExcludedSunday(t *testing.T) {
	cfg := baseConfig()
	cfg.Rules = append(cfg.Rules, schedule.DayRule{Kind: schedule.Exclude, Day: 107})
	sunday := monday.AddDate(0, 0, 6)
	s := newSystem(t, cfg, sunday)

	s.clk.Advance(logic.StartupDelay)
	s.clk.AdvanceTo(sunday.Add(3 * time.Minute))

	if st := s.lastStatus(t); st.Fill != logic.FillYellow || st.Text != "No action today" {
		t.Errorf("sunday status: got %+v", st)
	}
	for _, rec := range s.states(t) {
		if rec.Payload != "off" {
			t.Errorf("sunday record: got payload %v", rec.Payload)
		}
	}

	nextMonday := sunday.AddDate(0, 0, 1)
	s.clk.AdvanceTo(nextMonday.Add(3 * time.Minute))

	states := s.states(t)
	if last := states[len(states)-1]; last.Payload != "on" {
		t.Errorf("monday record: got payload %v, want on", last.Payload)
	}
	if on, _ := s.relay.Last(); !on {
		t.Error("relay should be on on monday")
	}
}

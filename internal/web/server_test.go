package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/sweeney/sun-timer/internal/astro"
	"github.com/sweeney/sun-timer/internal/clock"
	"github.com/sweeney/sun-timer/internal/logic"
	"github.com/sweeney/sun-timer/internal/status"
)

var start = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testEvents() []astro.Entry {
	return []astro.Entry{
		{ID: 5101, Label: "Sunrise", Time: time.Date(2026, 6, 1, 4, 43, 0, 0, time.UTC)},
		{ID: 5107, Label: "Sunset", Time: time.Date(2026, 6, 1, 21, 9, 0, 0, time.UTC)},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		Latitude:  51.5,
		Longitude: -0.12,
		Start:     "sunset",
		End:       "23:30",
		Topic:     "garden/lights",
		Broker:    "tcp://192.168.1.200:1883",
		HTTPAddr:  ":8080",
	}
	tr := status.NewTracker(clock.Fake(start), cfg)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "suntimer_output_on 1\n")
	})
	srv := New(":0", tr, testEvents, metrics)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.Snapshot{
		Mode:   logic.ModeTempOn,
		On:     true,
		Status: logic.Status{Fill: logic.FillGreen, Shape: logic.ShapeRing, Text: "Temporary ON"},
		Counts: logic.TransitionCounts{On: 5, Off: 2},
	})
	tr.SetBusConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "ON" {
		t.Errorf("State: got %q, want ON", sj.Status.State)
	}
	if sj.Status.Mode != "tempOn" {
		t.Errorf("Mode: got %q, want tempOn", sj.Status.Mode)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.Bus.Connected {
		t.Error("expected Bus.Connected=true")
	}
	if sj.Status.Bus.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Bus.Broker: got %q", sj.Status.Bus.Broker)
	}
	if sj.Status.Counts.On != 5 || sj.Status.Counts.Off != 2 {
		t.Errorf("Counts: got %+v, want on=5 off=2", sj.Status.Counts)
	}
	if sj.Status.Config.Topic != "garden/lights" {
		t.Errorf("Config.Topic: got %q", sj.Status.Config.Topic)
	}
}

func TestJSONUnknownStateBeforeFirstUpdate(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first update: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestEventsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/events.json")
	if err != nil {
		t.Fatalf("GET /events.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	var ej EventsJSON
	if err := json.NewDecoder(resp.Body).Decode(&ej); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if len(ej.Events) != 2 {
		t.Fatalf("events: got %d, want 2", len(ej.Events))
	}
	if ej.Events[1].ID != 5107 || ej.Events[1].Label != "Sunset" {
		t.Errorf("events[1]: got %+v", ej.Events[1])
	}
}

func TestOptionalRoutesAbsent(t *testing.T) {
	tr := status.NewTracker(clock.Fake(start), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil, nil).Handler())
	defer ts.Close()

	for _, path := range []string{"/events.json", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != 404 {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "suntimer_output_on") {
		t.Errorf("metrics body missing gauge: %q", body)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.Snapshot{
		Mode:        logic.ModeAuto,
		On:          true,
		Status:      logic.Status{Fill: logic.FillGreen, Shape: logic.ShapeDot, Text: "ON - 02hrs 00mins left"},
		NextChange:  120,
		ActualStart: 1269,
		ActualEnd:   1410,
		DayAllowed:  true,
	})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{"ON - 02hrs 00mins left", "21:09 - 23:30", "Sunset", "02hrs 00mins"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Status(logic.Status{Fill: logic.FillRed, Shape: logic.ShapeRing, Text: "Temporary OFF"})
	tr.Send(&logic.ChangeRecord{State: logic.ModeTempOff, Payload: "0", Topic: "garden/lights"}, nil)
	tr.SetBusConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Ready {
		t.Error("expected Ready=true after status")
	}
	if sj2.Status.State != "OFF" {
		t.Errorf("State: got %q, want OFF", sj2.Status.State)
	}
	if sj2.Status.Publishes != 1 {
		t.Errorf("Publishes: got %d, want 1", sj2.Status.Publishes)
	}
	if !sj2.Status.Bus.Connected {
		t.Error("expected bus connected after update")
	}
}

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWithWriter("info", false, &buf)
	if err != nil {
		t.Fatalf("SetupWithWriter: %v", err)
	}

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "runner").Msg("started")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["message"] != "started" || entry["component"] != "runner" {
		t.Errorf("entry: got %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected time field")
	}
}

func TestSetupPretty(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWithWriter("debug", true, &buf)
	if err != nil {
		t.Fatalf("SetupWithWriter: %v", err)
	}

	logger.Debug().Msg("tick")
	if !strings.Contains(buf.String(), "tick") {
		t.Errorf("output missing message: %q", buf.String())
	}
	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected console output, got JSON: %q", buf.String())
	}
}

func TestSetupDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := SetupWithWriter("", false, &buf)
	if err != nil {
		t.Fatalf("SetupWithWriter: %v", err)
	}
	if logger.GetLevel().String() != "info" {
		t.Errorf("level: got %v, want info", logger.GetLevel())
	}
}

func TestSetupInvalidLevel(t *testing.T) {
	if _, err := SetupWithWriter("loud", false, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}

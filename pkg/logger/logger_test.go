package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewSetsLevelAndFormat(t *testing.T) {
	cfg := LoggingConfig{Level: "debug", Format: "json"}
	log := New(cfg)
	if log.GetLevel().String() != "debug" {
		t.Fatalf("expected level debug, got %s", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", log.Formatter)
	}
}

func TestForRunAttachesRunIDToEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "info", Format: "json"})
	log.SetOutput(&buf)

	log.ForRun("run-123").WithField("cycle_count", 7).Warn("cycle overran budget")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v, body: %s", err, buf.String())
	}
	if line["run_id"] != "run-123" {
		t.Fatalf("expected run_id=run-123, got %v", line["run_id"])
	}
	if line["cycle_count"] != float64(7) {
		t.Fatalf("expected cycle_count=7, got %v", line["cycle_count"])
	}
	if line["msg"] != "cycle overran budget" {
		t.Fatalf("expected msg field, got %v", line["msg"])
	}
}

func TestDefaultFormatIsTextWhenUnspecified(t *testing.T) {
	var buf bytes.Buffer
	log := New(LoggingConfig{Level: "info"})
	log.SetOutput(&buf)

	log.WithField("node", "tank").Info("stepped")

	if buf.Len() == 0 {
		t.Fatal("expected text-formatted output to be written")
	}
	var discard map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &discard); err == nil {
		t.Fatal("expected non-JSON text output by default, got valid JSON")
	}
}

package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/qvantel/synapse/internal/config"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	Init(config.Config{Logger: config.LoggerParams{Level: "WARN", ServiceName: "test"}})
	defer Init(config.Config{Logger: config.LoggerParams{Level: "INFO", ServiceName: "synapse"}})

	Debugf("epoch %d", 1)
	Info("ignored")
	Error("boom", bytes.ErrTooLarge)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected only the error to be logged, got %d lines: %s", len(lines), buf.String())
	}
	var event EventLogData
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("Log line isn't valid JSON (%s)", err.Error())
	}
	if event.LogLevel != "ERROR" || event.ServiceName != "test" {
		t.Errorf("Unexpected event %+v", event)
	}
	if !strings.Contains(event.Message, bytes.ErrTooLarge.Error()) {
		t.Errorf("The error should be appended to the message, got %s", event.Message)
	}
	if Enabled("INFO") || !Enabled("ERROR") {
		t.Error("Enabled doesn't match the configured level")
	}
}

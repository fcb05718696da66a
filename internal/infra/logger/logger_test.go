package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"challenge_reminder_bot/internal/infra/config"

	"github.com/sirupsen/logrus"
)

func TestInitProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(&config.AppConfig{LogLevel: "warn", Environment: "production"}, &buf)

	For("dispatcher").Info("dropped")
	For("dispatcher").WithField("name", "Pushups").Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["component"] != "dispatcher" || entry["name"] != "Pushups" || entry["msg"] != "kept" {
		t.Fatalf("entry = %v", entry)
	}
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(&config.AppConfig{LogLevel: "chatty", Environment: "development"}, &buf)
	if Log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info", Log.GetLevel())
	}
	if _, ok := Log.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("formatter = %T, want text", Log.Formatter)
	}
}

package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := wrap(zap.New(core)).Named("collector").With(String("source", "Gazette"))

	log.Warn("source fetch failed", Int("status", 503), Error(errors.New("boom")))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.LoggerName != "collector" || e.Level != zapcore.WarnLevel {
		t.Errorf("entry = %s/%s", e.LoggerName, e.Level)
	}
	ctx := e.ContextMap()
	if ctx["source"] != "Gazette" || ctx["status"] != int64(503) || ctx["error"] != "boom" {
		t.Errorf("context = %v", ctx)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
		ok   bool
	}{
		{"debug", zapcore.DebugLevel, true},
		{"warning", zapcore.WarnLevel, true},
		{"error", zapcore.ErrorLevel, true},
		{"verbose", zapcore.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseLevel(%q) = %v, %v", tt.in, got, ok)
		}
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop().With(String("k", "v")).Named("x")
	log.Info("ignored")
	log.Infof("ignored %d", 1)
}

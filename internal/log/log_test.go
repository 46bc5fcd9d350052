package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSetOutputKeepsLevel(t *testing.T) {
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	var buf bytes.Buffer
	SetOutput(&buf)
	Info("quiet info line")
	Warn("loud warn line")

	out := buf.String()
	if strings.Contains(out, "quiet info line") || !strings.Contains(out, "loud warn line") {
		t.Errorf("level not carried over to the new output: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	defer SetLevel(LevelInfo)

	Debug("hidden debug line")
	Info("render completed", "year", 2024, "month", 7)
	Error("render failed", errors.New("boom"), "year", 2024)

	out := buf.String()
	if strings.Contains(out, "hidden debug line") {
		t.Error("debug line should be filtered at INFO level")
	}
	if !strings.Contains(out, "render completed") || !strings.Contains(out, "month=7") {
		t.Errorf("info line missing or without key/values: %q", out)
	}
	if !strings.Contains(out, "err=boom") {
		t.Errorf("error line should carry err key: %q", out)
	}

	buf.Reset()
	SetLevel(LevelDebug)
	Debug("visible debug line")
	if !strings.Contains(buf.String(), "visible debug line") {
		t.Error("debug line should be written at DEBUG level")
	}
}

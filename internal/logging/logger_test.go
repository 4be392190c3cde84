package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", &buf)

	log.Debug("hidden")
	log.Info("shown")

	out := buf.String()
	if bytes.Contains([]byte(out), []byte("hidden")) {
		t.Errorf("debug message leaked at info level: %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("shown")) {
		t.Errorf("info message missing: %q", out)
	}
}

func TestTraceLoggerNilSafe(t *testing.T) {
	var tl *TraceLogger
	tl.Log(map[string]any{"event": "reject"}) // must not panic
	tl.Close()
}

func TestTraceLoggerInfoLevelDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if tl := NewTraceLogger(path, "info"); tl != nil {
		t.Fatal("expected nil TraceLogger at info level")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("trace file should not be created at info level")
	}
}

func TestTraceLoggerWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	tl := NewTraceLogger(path, "debug")
	if tl == nil {
		t.Fatal("expected TraceLogger at debug level")
	}

	tl.Log(map[string]any{"event": "accept", "mass": 1.02})
	tl.Log(map[string]any{"event": "reject", "mass": 3.7})
	tl.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open trace file: %v", err)
	}
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		if _, ok := entry["time"]; !ok {
			t.Errorf("line %d missing time field", lines+1)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("got %d trace lines, want 2", lines)
	}
}

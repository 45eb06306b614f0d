package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log, err := New(&Options{Level: "debug", Format: FormatJSON, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Debug("segment downloaded", slog.String("segment", "1.ts"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if rec["msg"] != "segment downloaded" || rec["segment"] != "1.ts" {
		t.Errorf("record = %v", rec)
	}
}

func TestNew_TextLevelFilter(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log, err := New(&Options{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNew_UnknownLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	log, err := New(&Options{Level: "loud", Output: &buf})
	if err == nil {
		t.Error("New() error = nil, want unknown level error")
	}
	if log == nil {
		t.Fatal("New() returned nil logger")
	}
}

func TestNew_NilOptions(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil")
	}
}

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	log.Named("mapview").Named("route-line").Info("Route drawn",
		String("from", "KSFO"),
		Float64("distance_nm", 293.5),
		Error(errors.New("boom")))
	log.Debug("hidden below info")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["level"] != "info" || entry["msg"] != "Route drawn" || entry["logger"] != "mapview.route-line" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["from"] != "KSFO" || entry["distance_nm"] != 293.5 || entry["error"] != "boom" {
		t.Errorf("fields missing from %v", entry)
	}
	if _, ok := entry["caller"]; ok {
		t.Error("caller should only be added at debug level")
	}
}

func TestDebugAddsCaller(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	log.WithRequestID("req-1").Debug("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	caller, _ := entry["caller"].(string)
	if !strings.Contains(caller, "logger_test.go") {
		t.Errorf("caller = %q", caller)
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}

func TestConsoleNamePadding(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(Config{Format: "console"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	log.Named("api").Named("scene-engine").Info("ready")

	out := buf.String()
	if !strings.Contains(out, "scene-engine"+strings.Repeat(" ", nameWidth-len("scene-engine"))) {
		t.Errorf("name not padded to %d columns: %q", nameWidth, out)
	}
	if strings.Contains(out, "api.") {
		t.Errorf("only the last name component should be shown: %q", out)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := NewWithWriter(Config{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

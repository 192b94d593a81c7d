package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"Warn", LevelWarn, false},
		{"error", LevelError, false},
		{"trace", "", true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInit_JSONWriterAndHelpers(t *testing.T) {
	_ = Close()
	defer Close()

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelDebug, Format: "json", Writer: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := Init(Config{Writer: &buf}); err == nil {
		t.Error("second Init should fail")
	}

	WithPage(4, 9).Debug("page evicted")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "page evicted" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["table_id"] != float64(4) || rec["page_no"] != float64(9) {
		t.Errorf("page attributes missing: %v", rec)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	_ = Close()
	defer Close()

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelWarn, Writer: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Info("hidden")
	Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("INFO record passed a WARN logger")
	}
	if !strings.Contains(out, "shown") {
		t.Error("WARN record missing")
	}
}

func TestGetLogger_LazyDefault(t *testing.T) {
	_ = Close()
	if GetLogger() == nil {
		t.Fatal("GetLogger returned nil before Init")
	}
	_ = Close()
}

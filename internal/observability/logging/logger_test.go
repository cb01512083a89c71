package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/observability"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v\n%s", err, line)
		}
		out = append(out, entry)
	}
	return out
}

func TestJSONLLogger_EventFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONL(&buf, LevelDebug)

	ctx := observability.WithRunID(observability.WithOpID(context.Background()), "run-42")
	logger.Event(ctx, "tool.invoke", map[string]any{"tool": "verify_ordinary", "latency_ms": 3})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]

	for _, field := range []string{"ts", "level", "event", "component", "op_id", "schema_version"} {
		if _, ok := e[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}
	if e["event"] != "arbiter.tool.invoke" {
		t.Errorf("event = %v", e["event"])
	}
	if e["component"] != "tool" {
		t.Errorf("component = %v, want tool", e["component"])
	}
	if e["op_id"] != observability.OpID(ctx) {
		t.Errorf("op_id = %v", e["op_id"])
	}
	if e["run_id"] != "run-42" {
		t.Errorf("run_id = %v", e["run_id"])
	}
	if e["schema_version"] != SchemaVersion {
		t.Errorf("schema_version = %v", e["schema_version"])
	}

	fields, ok := e["fields"].(map[string]any)
	if !ok {
		t.Fatal("fields is not a map")
	}
	if fields["latency_ms"] != float64(3) {
		t.Errorf("latency_ms = %v", fields["latency_ms"])
	}
}

func TestJSONLLogger_NoRunIDOmitted(t *testing.T) {
	var buf bytes.Buffer
	NewJSONL(&buf, LevelInfo).Event(context.Background(), "verify.start", nil)

	e := decodeLines(t, &buf)[0]
	if _, ok := e["run_id"]; ok {
		t.Error("run_id should be omitted outside a run")
	}
}

func TestJSONLLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		minLevel string
		method   func(Logger)
		want     bool
	}{
		{LevelInfo, func(l Logger) { l.Debug("c", "m") }, false},
		{LevelInfo, func(l Logger) { l.Info("c", "m") }, true},
		{LevelWarn, func(l Logger) { l.Info("c", "m") }, false},
		{LevelWarn, func(l Logger) { l.Error("c", "m", "k", "v") }, true},
		{LevelError, func(l Logger) { l.Warn("c", "m") }, false},
		{LevelError, func(l Logger) { l.Event(context.Background(), "x.y", nil) }, false},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.method(NewJSONL(&buf, tt.minLevel))
		if got := buf.Len() > 0; got != tt.want {
			t.Errorf("minLevel=%s: got output=%v, want %v", tt.minLevel, got, tt.want)
		}
	}
}

func TestJSONLLogger_KeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	NewJSONL(&buf, LevelDebug).Warn("gate", "malformed history", "tool", "verify_ordinary", "dangling")

	e := decodeLines(t, &buf)[0]
	fields := e["fields"].(map[string]any)
	if fields["tool"] != "verify_ordinary" {
		t.Errorf("tool = %v", fields["tool"])
	}
	if len(fields) != 1 {
		t.Errorf("dangling key should be dropped: %v", fields)
	}
	if e["msg"] != "malformed history" || e["component"] != "gate" {
		t.Errorf("unexpected entry: %v", e)
	}
}

func TestNewLogger_Formats(t *testing.T) {
	logger, err := NewLogger(Config{Format: FormatPretty})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if _, ok := logger.(*noopLogger); !ok {
		t.Error("pretty format should return noopLogger")
	}
	_ = logger.Close()

	logger, err = NewLogger(Config{Format: FormatJSONL})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if _, ok := logger.(*jsonlLogger); !ok {
		t.Error("jsonl format should return jsonlLogger")
	}
	_ = logger.Close()

	if _, err := NewLogger(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := NewLogger(Config{Format: FormatJSONL, Level: "trace"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "arbiter.log")

	logger, err := NewLogger(Config{Format: FormatJSONL, Output: logFile})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Event(observability.WithOpID(context.Background()), "ledger.reset", nil)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"event":"arbiter.ledger.reset"`) {
		t.Errorf("unexpected log content: %s", data)
	}
}

func TestFrom(t *testing.T) {
	ctx := context.Background()
	logger := From(ctx)
	if logger == nil {
		t.Fatal("From should never return nil")
	}
	logger.Info("test", "msg")
	logger.Event(ctx, "test.event", nil)

	var buf bytes.Buffer
	original := NewJSONL(&buf, LevelInfo)
	if From(WithLogger(ctx, original)) != original {
		t.Error("From should return the logger stored in context")
	}
}

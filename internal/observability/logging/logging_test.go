package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewEmitsJSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})
	logger.Info("hello", "key", "value")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["key"] != "value" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf, Format: "text"})
	logger.Info("hello")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf, Level: "warn"})
	logger.Info("dropped")
	logger.Warn("kept")
	output := buf.String()
	if strings.Contains(output, "dropped") {
		t.Fatalf("info record should be filtered: %q", output)
	}
	if !strings.Contains(output, "kept") {
		t.Fatalf("warn record missing: %q", output)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(Config{Writer: &buf}), "api")
	logger.Info("hello")
	if !strings.Contains(buf.String(), `"component":"api"`) {
		t.Fatalf("component annotation missing: %q", buf.String())
	}
	if WithComponent(nil, "api") != nil {
		t.Fatalf("nil logger should stay nil")
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-42")
	id, ok := RequestIDFromContext(ctx)
	if !ok || id != "req-42" {
		t.Fatalf("round trip failed: %q %v", id, ok)
	}

	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Fatalf("empty context should have no request id")
	}
	if ctx := ContextWithRequestID(context.Background(), "  "); ctx != context.Background() {
		if _, ok := RequestIDFromContext(ctx); ok {
			t.Fatalf("blank id should not be stored")
		}
	}

	var buf bytes.Buffer
	logger := WithContext(ctx, New(Config{Writer: &buf}))
	logger.Info("hello")
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("request id annotation missing: %q", buf.String())
	}
}

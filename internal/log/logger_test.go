package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{FormatJSON, func(t *testing.T, out string) {
			var m map[string]any
			if err := json.Unmarshal([]byte(out), &m); err != nil {
				t.Fatalf("not JSON: %v (%q)", err, out)
			}
			if m["msg"] != "hello" || m["component"] != "test" {
				t.Errorf("unexpected record %v", m)
			}
		}},
		{FormatText, func(t *testing.T, out string) {
			if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "component=test") {
				t.Errorf("unexpected text output %q", out)
			}
		}},
		{FormatPretty, func(t *testing.T, out string) {
			if !strings.Contains(out, "hello") {
				t.Errorf("unexpected pretty output %q", out)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Level: slog.LevelInfo, Format: tt.format, Component: "test", Output: &buf})
			l.Info("hello")
			tt.check(t, buf.String())
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Format: FormatText, Component: "test", Output: &buf})
	l.Info("dropped")
	l.Warn("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn record missing")
	}
}

func TestLogger_WithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Component: "app", Output: &buf}).WithComponent(ComponentHTTP)
	l.Info("x")
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Errorf("component logged more than once: %s", buf.String())
	}
	if l.Component() != ComponentHTTP {
		t.Errorf("Component() = %q", l.Component())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Component: ComponentApp, Output: &buf})
	sl := NewStructuredLogger(l)
	ctx := context.Background()

	sl.LogTransactionCreated(ctx, 1, 42, decimal.RequireFromString("-12.5"), "Food")
	if !strings.Contains(buf.String(), `"amount":"-12.50"`) || !strings.Contains(buf.String(), `"transaction_id":42`) {
		t.Errorf("transaction fields missing: %s", buf.String())
	}

	buf.Reset()
	r := httptest.NewRequest("GET", "/api/budgets/1/reports/kpis?month=2024-01", nil)
	sl.LogHTTPEnd(ctx, r, 503, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("5xx should log at error: %s", buf.String())
	}

	buf.Reset()
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpCreate, nil)
	if !strings.Contains(buf.String(), `"error":"disk full"`) || !strings.Contains(buf.String(), `"component":"storage"`) {
		t.Errorf("error fields missing: %s", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != "unknown" {
		t.Fatalf("FromContext fallback = %+v", l)
	}
}

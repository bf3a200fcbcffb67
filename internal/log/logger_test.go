package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}).WithComponent(ComponentWorker)
	l.Info("hello", FieldVersion, int64(3))
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec[FieldComponent] != ComponentWorker || rec["msg"] != "hello" {
		t.Errorf("record = %v", rec)
	}
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	var got *Logger
	h := Middleware(base)(ComponentMiddleware(ComponentHTTP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("logger from context = %+v", got)
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("missing logger should fall back to the default")
	}
}

func TestLogLedgerOpLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	sl.LogLedgerOp(context.Background(), OpDelete, "u1", "tx-1", errors.New("boom"))
	sl.LogLedgerOp(context.Background(), OpCreate, "u1", "tx-2", nil)

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "transaction_id=tx-1") {
		t.Errorf("failure should log at warn: %s", out)
	}
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "Ledger operation completed") {
		t.Errorf("success should log at info: %s", out)
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{503, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Output: &buf}))
		r := httptest.NewRequest(http.MethodGet, "/api/v1/accounts?include_cash=true", nil)
		sl.LogHTTPEnd(context.Background(), r, "req_1", tt.status, 15*time.Millisecond, "10.0.0.1")

		out := buf.String()
		if !strings.Contains(out, tt.level) {
			t.Errorf("status %d: want %s in %s", tt.status, tt.level, out)
		}
		if !strings.Contains(out, "request_id=req_1") || !strings.Contains(out, "duration_ms=15") {
			t.Errorf("status %d: missing fields in %s", tt.status, out)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	h := Middleware(New(Config{Output: &buf}))(
		RequestIDMiddleware(func(*http.Request) string { return "req_abc" })(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				FromContext(r.Context()).Info("inside")
			})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Errorf("request id not attached: %s", buf.String())
	}
}

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
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})

	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentLedger {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentLedger)
	}
	if rec["k"] != "v" {
		t.Errorf("k = %v, want v", rec["k"])
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn should be logged, got %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf}).WithComponent(ComponentHTTP)
	if logger.Component() != ComponentHTTP {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Errorf("FromContext(empty) = %+v", got)
	}

	logger := New(Config{Output: &bytes.Buffer{}, Component: ComponentHTTP})
	var seen *Logger
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen != logger {
		t.Error("middleware should place the logger in the request context")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))

	sl.LogExpenseAdded(context.Background(), 1, "Coffee", "Food", "50.00", 1)
	if !strings.Contains(buf.String(), `"entry_name":"Coffee"`) {
		t.Errorf("missing entry name: %s", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("disk gone"), OpAdd, ErrorTypeDatabase, nil)
	if !strings.Contains(buf.String(), `"error_type":"database_error"`) {
		t.Errorf("missing error type: %s", buf.String())
	}

	buf.Reset()
	r := httptest.NewRequest(http.MethodPost, "/expenses", nil)
	sl.LogHTTPEnd(context.Background(), r, http.StatusUnprocessableEntity, 3, "10.0.0.1")
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Errorf("4xx should log at warn: %s", buf.String())
	}
}

package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spendtracker/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if log.FromContext(r.Context()).Component() == "" {
			t.Error("request logger missing")
		}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q, want req_ prefix", seen)
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
	}
}

func TestMiddleware_ReusesValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "abc-123" {
		t.Errorf("request id = %q, want abc-123", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "<bad id>")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen == "<bad id>" {
		t.Error("malformed incoming id must be replaced")
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "127.0.0.1" })
	statuses := []int{http.StatusOK, http.StatusUnprocessableEntity, http.StatusInternalServerError, http.StatusOK}
	for _, code := range statuses {
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 4 || got.Status2xx != 2 || got.Status4xx != 1 || got.Status5xx != 1 {
		t.Errorf("GetMetrics() = %+v", got)
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b {
		t.Error("ids should differ")
	}
	if len(a) != len("req_")+16 {
		t.Errorf("len(%q) = %d", a, len(a))
	}
}

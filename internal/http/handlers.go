package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"spendtracker/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Snapshot failed", log.FieldError, err, log.FieldPath, r.URL.Path)
		http.Error(w, "ledger unavailable", http.StatusInternalServerError)
		return
	}

	summary, err := buildSummary(snap, s.currency)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Summary build failed", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := pageView{
		Title:      "Monthly Expense Tracker",
		Currency:   s.currency,
		Categories: categoryOptions(),
		Table:      buildTable(snap, 1, s.currency),
		Summary:    summary,
		Version:    snap.Version,
	}
	s.render(w, r, http.StatusOK, "index.html", data)
}

// render executes into a buffer first so a template failure never leaves a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name,
			log.FieldOperation, log.OpRender)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes counters in the Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	metric := func(name, help, typ string, value any, labels ...string) {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ)
		if len(labels) == 0 {
			fmt.Fprintf(&buf, "%s %v\n", name, value)
		}
	}

	snap, err := s.ledger.Snapshot(r.Context())
	if err == nil {
		metric("spendtracker_ledger_entries", "Entries currently in the ledger.", "gauge", len(snap.Entries))
		metric("spendtracker_ledger_version", "Successful ledger mutations since start.", "counter", snap.Version)
		metric("spendtracker_ledger_category_total", "Running total per category.", "gauge", nil, "category")
		for _, sl := range snap.Series {
			fmt.Fprintf(&buf, "spendtracker_ledger_category_total{category=%q} %s\n", string(sl.Category), sl.Value.String())
		}
	}

	metric("spendtracker_expenses_added_total", "Expenses added over HTTP.", "counter", s.metrics.expensesAdded.Load())
	metric("spendtracker_expenses_removed_total", "Expenses removed over HTTP.", "counter", s.metrics.expensesRemoved.Load())
	metric("spendtracker_validation_failures_total", "Rejected expense submissions.", "counter", s.metrics.validationFailures.Load())

	tm := s.tracer.GetMetrics()
	metric("spendtracker_http_requests_total", "HTTP requests by status class.", "counter", nil, "class")
	fmt.Fprintf(&buf, "spendtracker_http_requests_total{class=\"2xx\"} %d\n", tm.Status2xx)
	fmt.Fprintf(&buf, "spendtracker_http_requests_total{class=\"4xx\"} %d\n", tm.Status4xx)
	fmt.Fprintf(&buf, "spendtracker_http_requests_total{class=\"5xx\"} %d\n", tm.Status5xx)
	metric("spendtracker_http_request_duration_avg_microseconds", "Mean request duration.", "gauge", tm.AverageResponseTime)

	rm := s.limiter.GetMetrics()
	metric("spendtracker_rate_limit_rejected_total", "Requests rejected by the rate limiter.", "counter", rm.Rejected)
	metric("spendtracker_rate_limit_clients", "Clients tracked by the rate limiter.", "gauge", rm.ClientCount)

	dm := s.detector.GetMetrics()
	metric("spendtracker_security_suspicious_requests_total", "Requests matching probe patterns.", "counter", dm.SuspiciousRequests)
	metric("spendtracker_security_suspicious_inputs_total", "Form submissions matching injection patterns.", "counter", dm.SuspiciousInputs)

	cs := s.reports.Stats()
	metric("spendtracker_report_cache_hits_total", "PDF report cache hits.", "counter", cs.Hits)
	metric("spendtracker_report_cache_misses_total", "PDF report cache misses.", "counter", cs.Misses)

	if s.events != nil {
		metric("spendtracker_events_sent_total", "Ledger events delivered to the broker.", "counter", s.events.Sent())
		metric("spendtracker_events_dropped_total", "Ledger events dropped on a full queue.", "counter", s.events.Dropped())
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

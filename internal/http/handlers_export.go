package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"spendtracker/internal/log"
	"spendtracker/internal/report"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		http.Error(w, "ledger unavailable", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, snap.Entries); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "CSV export failed",
			log.FieldError, err,
			log.FieldOperation, log.OpExport)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleExportPDF renders the report once per ledger version.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.ledger.Snapshot(ctx)
	if err != nil {
		http.Error(w, "ledger unavailable", http.StatusInternalServerError)
		return
	}

	key := fmt.Sprintf("pdf:%d:%s", snap.Version, s.currency)
	data, ok := s.reports.Get(key)
	if !ok {
		var buf bytes.Buffer
		err := report.WritePDF(&buf, report.Summary{
			Entries:     snap.Entries,
			Series:      snap.Series,
			Total:       snap.Total,
			Currency:    s.currency,
			GeneratedAt: s.now(),
		})
		if err != nil {
			log.FromContext(ctx).ErrorContext(ctx, "PDF export failed",
				log.FieldError, err,
				log.FieldOperation, log.OpExport,
				log.FieldVersion, snap.Version)
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		data = buf.Bytes()
		s.reports.Set(key, data)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="expense-report.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

package http

import (
	"net/http"

	"spendtracker/internal/core"
	"spendtracker/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Snapshot failed", log.FieldError, err, log.FieldOperation, log.OpTotals)
		InternalServerError("Could not load the summary.").Write(w)
		return
	}
	if notModified(w, r, snap.Version) {
		return
	}

	view, err := buildSummary(snap, s.currency)
	if err != nil {
		InternalServerError("Could not build the chart.").Write(w)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	s.render(w, r, http.StatusOK, "summary", view)
}

type expenseJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Amount   string `json:"amount"`
}

type seriesJSON struct {
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Percent  float64 `json:"percent"`
}

func toExpenseJSON(entries []core.Entry) []expenseJSON {
	out := make([]expenseJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, expenseJSON{
			ID:       e.ID,
			Name:     e.Name,
			Category: string(e.Category),
			Label:    e.Category.Label(),
			Amount:   e.Amount.String(),
		})
	}
	return out
}

// totalsJSON keeps every category, zero included.
func totalsJSON(t core.Totals) map[string]string {
	out := make(map[string]string, len(core.Categories))
	for _, c := range core.Categories {
		out[string(c)] = t[c].String()
	}
	return out
}

func (s *Server) handleAPIExpenses(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "ledger unavailable"})
		return
	}
	if notModified(w, r, snap.Version) {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"expenses": toExpenseJSON(snap.Entries),
		"count":    len(snap.Entries),
		"total":    snap.Total.String(),
		"version":  snap.Version,
	})
}

func (s *Server) handleAPITotals(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "ledger unavailable"})
		return
	}
	if notModified(w, r, snap.Version) {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"totals":  totalsJSON(snap.Totals),
		"total":   snap.Total.String(),
		"version": snap.Version,
	})
}

func (s *Server) handleAPISeries(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "ledger unavailable"})
		return
	}
	if notModified(w, r, snap.Version) {
		return
	}
	series := make([]seriesJSON, 0, len(snap.Series))
	for _, sl := range snap.Series {
		series = append(series, seriesJSON{
			Category: string(sl.Category),
			Name:     sl.Name,
			Value:    sl.Value.String(),
			Percent:  sl.Percent,
		})
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"series":  series,
		"version": snap.Version,
	})
}

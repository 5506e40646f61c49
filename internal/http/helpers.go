package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"spendtracker/internal/core"
)

// sanitizeInput trims and drops control characters other than tab, LF, CR.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func formatMoney(m core.Money, symbol string) string {
	return m.Format(symbol)
}

// versionETag is a weak validator: equal versions mean equal content.
func versionETag(version int64) string {
	return `W/"v` + strconv.FormatInt(version, 10) + `"`
}

// notModified sets the ETag and reports whether the client copy is current.
func notModified(w http.ResponseWriter, r *http.Request, version int64) bool {
	etag := versionETag(version)
	w.Header().Set("ETag", etag)
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		if strings.TrimSpace(candidate) == etag {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode JSON response", "error", err, "path", r.URL.Path)
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

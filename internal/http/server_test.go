package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtracker/internal/core"
	"spendtracker/internal/ledger"
	"spendtracker/internal/log"
	"spendtracker/internal/services"
)

func newTestServer(t *testing.T, opts Options) (*Server, *services.LedgerService) {
	t.Helper()
	logger := log.New(log.Config{Output: &bytes.Buffer{}})
	opts.Logger = logger
	svc := services.NewLedgerService(ledger.New(), nil, logger)
	srv, err := NewServer(opts, svc)
	require.NoError(t, err)
	return srv, svc
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postExpense(srv *Server, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return serve(srv, req)
}

func expenseForm(name, category, amount string) url.Values {
	return url.Values{fieldName: {name}, fieldCategory: {category}, fieldAmount: {amount}}
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, want := range []string{"Monthly Expense Tracker", "Add New Expense:", "Expense Analyzer", "Enter Expense Name"} {
		assert.Contains(t, body, want)
	}
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestIndex_CategoriesSortedByLabel(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	body := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()

	labels := []string{"Food", "Groceries", "Miscellaneous", "Rent and Assets", "Transport"}
	last := -1
	for _, l := range labels {
		idx := strings.Index(body, ">"+l+"</option>")
		require.NotEqual(t, -1, idx, "option %q missing", l)
		assert.Greater(t, idx, last, "option %q out of order", l)
		last = idx
	}
}

func TestReadyzFailure(t *testing.T) {
	srv, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCreateExpenseValidation(t *testing.T) {
	srv, svc := newTestServer(t, Options{})

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/expenses", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing name", expenseForm("", "Food", "10"), "Please input expense name!"},
		{"blank name", expenseForm("   ", "Food", "10"), "Please input expense name!"},
		{"missing category", expenseForm("Coffee", "", "10"), "Please input category!"},
		{"missing amount", expenseForm("Coffee", "Food", ""), "Please input expense amount!"},
		{"unknown category", expenseForm("Coffee", "Travel", "10"), "Please select a valid category."},
		{"negative amount", expenseForm("Coffee", "Food", "-5"), "Expense amount cannot be negative."},
		{"garbage amount", expenseForm("Coffee", "Food", "abc"), "Please enter a valid expense amount."},
		{"long name", expenseForm(strings.Repeat("x", core.MaxNameLength+1), "Food", "1"), "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postExpense(srv, tt.form, true)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int64(0), svc.Version())
}

func TestCreateExpenseSuccess(t *testing.T) {
	srv, svc := newTestServer(t, Options{})

	rr := postExpense(srv, expenseForm("Coffee", "Food", "50"), true)
	require.Equal(t, http.StatusCreated, rr.Code)

	trigger := rr.Header().Get("HX-Trigger")
	assert.Contains(t, trigger, EventLedgerChanged)
	assert.Contains(t, trigger, EventFormReset)
	assert.Contains(t, trigger, `"type":"success"`)
	assert.Contains(t, trigger, `Added Coffee (\u20b950.00)`)
	for i := 0; i < len(trigger); i++ {
		require.Less(t, trigger[i], byte(0x80), "HX-Trigger must be ASCII: %q", trigger)
	}

	totals, err := svc.CategoryTotals(context.Background())
	require.NoError(t, err)
	assert.True(t, totals[core.Food].Equal(core.MustMoney("50")))

	// Label and legacy spelling are accepted; a plain form post redirects.
	rr = postExpense(srv, expenseForm("Rent", "Rent and Assets", "1000"), false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	rr = postExpense(srv, expenseForm("Gift", "Miscallaneous", "12,5"), true)
	assert.Equal(t, http.StatusCreated, rr.Code)

	entries, err := svc.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, core.RentAndAssets, entries[1].Category)
	assert.Equal(t, core.Miscellaneous, entries[2].Category)
	assert.True(t, entries[2].Amount.Equal(core.MustMoney("12.5")))
}

func TestCreateExpenseJSON(t *testing.T) {
	srv, svc := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/expenses",
		strings.NewReader(`{"expenseName":"Bus","category":"Transport","expenseAmount":20}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HX-Request", "true")

	rr := serve(srv, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	totals, err := svc.CategoryTotals(context.Background())
	require.NoError(t, err)
	assert.True(t, totals[core.Transport].Equal(core.MustMoney("20")))
}

func TestDeleteExpense(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	ctx := context.Background()

	_, err := svc.AddExpense(ctx, "Rent", core.RentAndAssets, core.MustMoney("1000"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/expenses/1", nil)
	req.Header.Set("HX-Request", "true")
	rr := serve(srv, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), EventLedgerChanged)

	totals, err := svc.CategoryTotals(ctx)
	require.NoError(t, err)
	assert.True(t, totals[core.RentAndAssets].IsZero())

	// Unknown ids are a no-op.
	version := svc.Version()
	req = httptest.NewRequest(http.MethodDelete, "/expenses/999", nil)
	req.Header.Set("HX-Request", "true")
	rr = serve(srv, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("HX-Trigger"))
	assert.Equal(t, version, svc.Version())

	rr = serve(srv, httptest.NewRequest(http.MethodDelete, "/expenses/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteExpense_FormFallback(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	ctx := context.Background()

	e, err := svc.AddExpense(ctx, "Taxi", core.Transport, core.MustMoney("30"))
	require.NoError(t, err)

	rr := serve(srv, httptest.NewRequest(http.MethodPost, "/expenses/"+strconv.FormatInt(e.ID, 10)+"/delete", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	entries, err := svc.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExpensesTablePagination(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		_, err := svc.AddExpense(ctx, "Item "+strconv.Itoa(i), core.Groceries, core.MustMoney("1"))
		require.NoError(t, err)
	}

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/ui/expenses", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Item 10<")
	assert.NotContains(t, body, "Item 11<")
	assert.Contains(t, body, "Page 1 of 2")

	body = serve(srv, httptest.NewRequest(http.MethodGet, "/ui/expenses?page=2", nil)).Body.String()
	assert.Contains(t, body, "Item 11<")
	assert.Contains(t, body, "Item 12<")
	assert.NotContains(t, body, "Item 1<")

	// Out of range pages clamp to the last one.
	body = serve(srv, httptest.NewRequest(http.MethodGet, "/ui/expenses?page=9", nil)).Body.String()
	assert.Contains(t, body, "Page 2 of 2")
}

func TestBuildTable_Empty(t *testing.T) {
	tv := buildTable(services.Snapshot{Total: core.Zero}, 3, "₹")
	assert.Equal(t, 1, tv.Page)
	assert.Equal(t, 1, tv.Pages)
	assert.Empty(t, tv.Rows)
	assert.Zero(t, tv.PrevPage)
	assert.Zero(t, tv.NextPage)
}

func TestSummaryChartOption(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	_, err := svc.AddExpense(context.Background(), "Coffee", core.Food, core.MustMoney("50"))
	require.NoError(t, err)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	view, err := buildSummary(snap, "₹")
	require.NoError(t, err)
	assert.Equal(t, "Food", view.Largest)
	assert.False(t, view.Empty)

	var option map[string]any
	require.NoError(t, json.Unmarshal([]byte(view.ChartJSON), &option))
	series := option["series"].([]any)[0].(map[string]any)
	assert.Equal(t, "pie", series["type"])
	assert.Equal(t, "50%", series["radius"])
	assert.Len(t, series["data"], len(core.Categories))

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/ui/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "data-option")
	assert.Contains(t, rr.Body.String(), "₹50.00")
}

func TestAPITotalsAndETag(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	ctx := context.Background()
	_, err := svc.AddExpense(ctx, "Bus", core.Transport, core.MustMoney("20"))
	require.NoError(t, err)
	_, err = svc.AddExpense(ctx, "Taxi", core.Transport, core.MustMoney("30"))
	require.NoError(t, err)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/totals", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		Totals  map[string]string `json:"totals"`
		Total   string            `json:"total"`
		Version int64             `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "50.00", got.Totals["Transport"])
	assert.Equal(t, "0.00", got.Totals["Food"])
	assert.Len(t, got.Totals, len(core.Categories))
	assert.Equal(t, "50.00", got.Total)
	assert.Equal(t, int64(2), got.Version)

	etag := rr.Header().Get("ETag")
	require.Equal(t, `W/"v2"`, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/totals", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, serve(srv, req).Code)

	_, err = svc.AddExpense(ctx, "Bread", core.Groceries, core.MustMoney("3"))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/totals", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusOK, serve(srv, req).Code)
}

func TestAPIExpensesAndSeries(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	_, err := svc.AddExpense(context.Background(), "Coffee", core.Food, core.MustMoney("50"))
	require.NoError(t, err)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/api/expenses", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Expenses []expenseJSON `json:"expenses"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, expenseJSON{ID: 1, Name: "Coffee", Category: "Food", Label: "Food", Amount: "50.00"}, list.Expenses[0])

	rr = serve(srv, httptest.NewRequest(http.MethodGet, "/api/series", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var series struct {
		Series []seriesJSON `json:"series"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &series))
	require.Len(t, series.Series, len(core.Categories))
	assert.Equal(t, "Food", series.Series[0].Name)
	assert.Equal(t, 100.0, series.Series[0].Percent)
}

func TestExportCSV(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	_, err := svc.AddExpense(context.Background(), "Coffee", core.Food, core.MustMoney("50"))
	require.NoError(t, err)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/export/expenses.csv", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "expenses.csv")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "ID,Expense Name,Category,Expense Amount"))
	assert.Contains(t, rr.Body.String(), "Coffee")
}

func TestExportPDFCachedByVersion(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	ctx := context.Background()
	_, err := svc.AddExpense(ctx, "Coffee", core.Food, core.MustMoney("50"))
	require.NoError(t, err)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/export/report.pdf", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))

	serve(srv, httptest.NewRequest(http.MethodGet, "/export/report.pdf", nil))
	stats := srv.reports.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	_, err = svc.AddExpense(ctx, "Bus", core.Transport, core.MustMoney("20"))
	require.NoError(t, err)
	serve(srv, httptest.NewRequest(http.MethodGet, "/export/report.pdf", nil))
	assert.Equal(t, int64(2), srv.reports.Stats().Misses)
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	postExpense(srv, expenseForm("Coffee", "Food", "50"), true)
	postExpense(srv, expenseForm("", "Food", "50"), true)

	rr := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "spendtracker_ledger_entries 1\n")
	assert.Contains(t, body, `spendtracker_ledger_category_total{category="Food"} 50.00`)
	assert.Contains(t, body, "spendtracker_expenses_added_total 1\n")
	assert.Contains(t, body, "spendtracker_validation_failures_total 1\n")
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rr := postExpense(srv, expenseForm("Coffee", "Food", "1"), true)
		require.Equal(t, http.StatusCreated, rr.Code)
	}
	rr := postExpense(srv, expenseForm("Coffee", "Food", "1"), true)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	// Reads are not limited.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	}
}

func TestEscapesExpenseNames(t *testing.T) {
	srv, svc := newTestServer(t, Options{})
	_, err := svc.AddExpense(context.Background(), "<b>bold</b>", core.Food, core.MustMoney("1"))
	require.NoError(t, err)

	body := serve(srv, httptest.NewRequest(http.MethodGet, "/ui/expenses", nil)).Body.String()
	assert.NotContains(t, body, "<b>bold</b>")
	assert.Contains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
}

package http

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"

	"spendtracker/internal/core"
	"spendtracker/internal/ledger"
	"spendtracker/internal/report"
	"spendtracker/internal/services"
)

const pageSize = 10

type categoryOption struct {
	Value string
	Label string
}

type entryRow struct {
	ID       int64
	Name     string
	Category string
	Amount   string
}

type tableView struct {
	Rows     []entryRow
	Count    int
	Total    string
	Page     int
	Pages    int
	PrevPage int
	NextPage int
}

type legendItem struct {
	Label   string
	Amount  string
	Percent float64
	Color   string
}

type summaryView struct {
	ChartJSON string
	Legend    []legendItem
	Total     string
	Largest   string
	Empty     bool
}

type pageView struct {
	Title      string
	Currency   string
	Categories []categoryOption
	Table      tableView
	Summary    summaryView
	Version    int64
}

// categoryOptions lists categories for the picker, sorted by label.
func categoryOptions() []categoryOption {
	opts := make([]categoryOption, 0, len(core.Categories))
	for _, c := range core.Categories {
		opts = append(opts, categoryOption{Value: string(c), Label: c.Label()})
	}
	slices.SortFunc(opts, func(a, b categoryOption) int {
		return cmp.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label))
	})
	return opts
}

// buildTable pages entries, newest page last like the list grows. Pages are
// 1-based; out-of-range pages clamp.
func buildTable(snap services.Snapshot, page int, currency string) tableView {
	n := len(snap.Entries)
	pages := max(1, (n+pageSize-1)/pageSize)
	page = min(max(page, 1), pages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, n)

	rows := make([]entryRow, 0, end-start)
	for _, e := range snap.Entries[start:end] {
		rows = append(rows, entryRow{
			ID:       e.ID,
			Name:     e.Name,
			Category: e.Category.Label(),
			Amount:   formatMoney(e.Amount, currency),
		})
	}

	tv := tableView{
		Rows:  rows,
		Count: n,
		Total: formatMoney(snap.Total, currency),
		Page:  page,
		Pages: pages,
	}
	if page > 1 {
		tv.PrevPage = page - 1
	}
	if page < pages {
		tv.NextPage = page + 1
	}
	return tv
}

type chartDatum struct {
	Name      string         `json:"name"`
	Value     float64        `json:"value"`
	ItemStyle map[string]any `json:"itemStyle"`
}

// chartOption builds the ECharts option object for the category pie.
func chartOption(series []ledger.Slice) map[string]any {
	data := make([]chartDatum, 0, len(series))
	for _, s := range series {
		data = append(data, chartDatum{
			Name:      s.Name,
			Value:     s.Value.Float(),
			ItemStyle: map[string]any{"color": report.Color(s.Category).Hex()},
		})
	}
	return map[string]any{
		"title":   map[string]any{"text": "Expense Analyzer", "left": "center"},
		"tooltip": map[string]any{"trigger": "item"},
		"legend":  map[string]any{"orient": "vertical", "left": "left"},
		"series": []any{
			map[string]any{
				"name":   "Categories",
				"type":   "pie",
				"radius": "50%",
				"data":   data,
				"emphasis": map[string]any{
					"itemStyle": map[string]any{
						"shadowBlur":    10,
						"shadowOffsetX": 0,
						"shadowColor":   "rgba(0, 0, 0, 0.5)",
					},
				},
			},
		},
	}
}

func buildSummary(snap services.Snapshot, currency string) (summaryView, error) {
	chart, err := json.Marshal(chartOption(snap.Series))
	if err != nil {
		return summaryView{}, err
	}

	legend := make([]legendItem, 0, len(snap.Series))
	for _, s := range snap.Series {
		legend = append(legend, legendItem{
			Label:   s.Name,
			Amount:  formatMoney(s.Value, currency),
			Percent: s.Percent,
			Color:   report.Color(s.Category).Hex(),
		})
	}

	sv := summaryView{
		ChartJSON: string(chart),
		Legend:    legend,
		Total:     formatMoney(snap.Total, currency),
		Empty:     snap.Total.IsZero(),
	}
	if top, ok := ledger.Largest(snap.Series); ok {
		sv.Largest = top.Name
	}
	return sv, nil
}

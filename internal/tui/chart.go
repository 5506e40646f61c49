package tui

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"spendtracker/internal/core"
	"spendtracker/internal/ledger"
	"spendtracker/internal/report"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1e3a5f"))
	sectionStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	focusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3AA99F")).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#d9363e"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#fac858")).Bold(true)
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#2f9e44"))
)

func boxStyle(focused bool) lipgloss.Style {
	border := lipgloss.Color("#e5e7eb")
	if focused {
		border = lipgloss.Color("#3AA99F")
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1)
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color("#1e3a5f"))
	return s
}

func categoryColor(c core.Category) lipgloss.Color {
	return lipgloss.Color(report.Color(c).Hex())
}

func sortedCategories() []core.Category {
	out := slices.Clone(core.Categories)
	slices.SortFunc(out, func(a, b core.Category) int {
		return cmp.Compare(strings.ToLower(a.Label()), strings.ToLower(b.Label()))
	})
	return out
}

func tableRows(entries []core.Entry, currency string) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			strconv.FormatInt(e.ID, 10),
			e.Name,
			e.Category.Label(),
			e.Amount.Format(currency),
		})
	}
	return rows
}

// BarChart renders the category breakdown as horizontal bars scaled to the
// largest category. Categories with nothing spent still get a row.
func BarChart(series []ledger.Slice, width int, currency string) string {
	if width < 1 {
		width = 1
	}
	top, ok := ledger.Largest(series)
	if !ok {
		return dimStyle.Render("No expenses yet")
	}

	labelW := 0
	for _, s := range series {
		labelW = max(labelW, lipgloss.Width(s.Name))
	}

	var b strings.Builder
	for i, s := range series {
		filled := 0
		if !s.Value.IsZero() {
			ratio, _ := s.Value.Amount.Div(top.Value.Amount).Float64()
			filled = max(1, int(ratio*float64(width)+0.5))
		}
		bar := lipgloss.NewStyle().Foreground(categoryColor(s.Category)).Render(strings.Repeat("█", filled))
		empty := dimStyle.Render(strings.Repeat("░", width-filled))
		fmt.Fprintf(&b, "%-*s %s%s %s (%.1f%%)", labelW, s.Name, bar, empty, s.Value.Format(currency), s.Percent)
		if i < len(series)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

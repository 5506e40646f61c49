// Package tui provides an interactive Bubble Tea front end for the ledger:
// an add-expense form, the entry table and a category breakdown.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spendtracker/internal/core"
	"spendtracker/internal/services"
)

// Ledger is what the TUI needs from the ledger service.
type Ledger interface {
	AddExpense(ctx context.Context, name string, category core.Category, amount core.Money) (core.Entry, error)
	RemoveExpense(ctx context.Context, id int64) (core.Entry, bool, error)
	Snapshot(ctx context.Context) (services.Snapshot, error)
}

// snapshotMsg carries a fresh view of the ledger after a load or mutation.
type snapshotMsg struct {
	snap      services.Snapshot
	status    string
	clearForm bool // set once an add has been accepted
}

type errMsg struct{ err error }

type focus int

const (
	focusName focus = iota
	focusCategory
	focusAmount
	focusTable
	focusCount
)

const (
	tableHeight = 10
	chartWidth  = 30
)

// App is the root Bubble Tea model.
type App struct {
	ctx      context.Context
	ledger   Ledger
	currency string

	nameInput   textinput.Model
	amountInput textinput.Model
	categories  []core.Category
	categoryIdx int // -1 until the user picks one
	table       table.Model
	focus       focus

	snap      services.Snapshot
	confirmID int64
	status    string
	err       string
	width     int
}

// NewApp builds the model. ctx bounds every ledger call made from the UI.
func NewApp(ctx context.Context, ledger Ledger, currency string) App {
	name := textinput.New()
	name.Placeholder = "Enter Expense Name"
	name.CharLimit = core.MaxNameLength
	name.Width = 32
	name.Focus()

	amount := textinput.New()
	amount.Placeholder = "Enter Expense Amount in " + currency
	amount.CharLimit = 20
	amount.Width = 32

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 4},
			{Title: "Expense Name", Width: 28},
			{Title: "Category", Width: 16},
			{Title: "Expense Amount", Width: 16},
		}),
		table.WithHeight(tableHeight),
	)
	t.SetStyles(tableStyles())

	return App{
		ctx:         ctx,
		ledger:      ledger,
		currency:    currency,
		nameInput:   name,
		amountInput: amount,
		categories:  sortedCategories(),
		categoryIdx: -1,
		table:       t,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.loadCmd(""))
}

func (a App) loadCmd(status string) tea.Cmd {
	return func() tea.Msg {
		snap, err := a.ledger.Snapshot(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg{snap: snap, status: status}
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		return a, nil

	case snapshotMsg:
		a.snap = msg.snap
		a.table.SetRows(tableRows(msg.snap.Entries, a.currency))
		if msg.status != "" {
			a.status, a.err = msg.status, ""
		}
		if msg.clearForm {
			a.nameInput.Reset()
			a.amountInput.Reset()
			a.categoryIdx = -1
			a = a.setFocus(focusName)
		}
		return a, nil

	case errMsg:
		a.err = msg.err.Error()
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)
	}
	return a.forward(msg)
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// A pending delete swallows the next key.
	if a.confirmID != 0 {
		id := a.confirmID
		a.confirmID = 0
		if key == "y" || key == "Y" {
			return a, a.removeCmd(id)
		}
		a.status = "Delete cancelled"
		return a, nil
	}

	switch key {
	case "tab":
		return a.setFocus((a.focus + 1) % focusCount), nil
	case "shift+tab":
		return a.setFocus((a.focus + focusCount - 1) % focusCount), nil
	}

	switch a.focus {
	case focusTable:
		switch key {
		case "q", "esc":
			return a, tea.Quit
		case "d", "delete", "backspace":
			if id, ok := a.selectedID(); ok {
				a.confirmID = id
				a.status = ""
			}
			return a, nil
		}
	case focusCategory:
		switch key {
		case "left", "h":
			a.cycleCategory(-1)
			return a, nil
		case "right", "l", " ":
			a.cycleCategory(1)
			return a, nil
		case "enter":
			return a.submit()
		}
	default:
		if key == "enter" {
			return a.submit()
		}
	}
	return a.forward(msg)
}

// forward hands msg to whichever widget has focus.
func (a App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.focus {
	case focusName:
		a.nameInput, cmd = a.nameInput.Update(msg)
	case focusAmount:
		a.amountInput, cmd = a.amountInput.Update(msg)
	case focusTable:
		a.table, cmd = a.table.Update(msg)
	}
	return a, cmd
}

func (a App) setFocus(f focus) App {
	a.focus = f
	a.nameInput.Blur()
	a.amountInput.Blur()
	a.table.Blur()
	switch f {
	case focusName:
		a.nameInput.Focus()
	case focusAmount:
		a.amountInput.Focus()
	case focusTable:
		a.table.Focus()
	}
	return a
}

func (a *App) cycleCategory(step int) {
	n := len(a.categories)
	if a.categoryIdx < 0 {
		if step > 0 {
			a.categoryIdx = 0
		} else {
			a.categoryIdx = n - 1
		}
		return
	}
	a.categoryIdx = (a.categoryIdx + step + n) % n
}

// submit validates the form in field order and adds the expense.
func (a App) submit() (App, tea.Cmd) {
	name := strings.TrimSpace(a.nameInput.Value())
	rawAmount := strings.TrimSpace(a.amountInput.Value())

	switch {
	case name == "":
		a.err = "Please input expense name!"
		return a, nil
	case a.categoryIdx < 0:
		a.err = "Please input category!"
		return a, nil
	case rawAmount == "":
		a.err = "Please input expense amount!"
		return a, nil
	}

	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		a.err = amountMessage(err)
		return a, nil
	}

	category := a.categories[a.categoryIdx]
	a.err = ""
	return a, a.addCmd(name, category, amount)
}

func amountMessage(err error) string {
	if errors.Is(err, core.ErrNegativeAmount) {
		return "Expense amount cannot be negative."
	}
	return "Please enter a valid expense amount."
}

func (a App) addCmd(name string, category core.Category, amount core.Money) tea.Cmd {
	return func() tea.Msg {
		e, err := a.ledger.AddExpense(a.ctx, name, category, amount)
		if err != nil {
			return errMsg{err}
		}
		snap, err := a.ledger.Snapshot(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg{
			snap:      snap,
			status:    fmt.Sprintf("Added %s (%s)", e.Name, e.Amount.Format(a.currency)),
			clearForm: true,
		}
	}
}

func (a App) removeCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		e, removed, err := a.ledger.RemoveExpense(a.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		snap, err := a.ledger.Snapshot(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		status := "Nothing to delete"
		if removed {
			status = "Deleted " + e.Name
		}
		return snapshotMsg{snap: snap, status: status}
	}
}

func (a App) selectedID() (int64, bool) {
	row := a.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	return id, err == nil
}

// View implements tea.Model.
func (a App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Monthly Expense Tracker"))
	b.WriteString("\n\n")
	b.WriteString(a.viewForm())
	b.WriteString("\n")

	tableBox := boxStyle(a.focus == focusTable).Render(a.table.View())
	chart := boxStyle(false).Render(sectionStyle.Render("Expense Analyzer") + "\n\n" + BarChart(a.snap.Series, chartWidth, a.currency))
	if a.width > 0 && a.width < lipgloss.Width(tableBox)+lipgloss.Width(chart)+2 {
		b.WriteString(tableBox + "\n" + chart)
	} else {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tableBox, "  ", chart))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Total (%d): %s\n", len(a.snap.Entries), a.snap.Total.Format(a.currency)))
	switch {
	case a.confirmID != 0:
		b.WriteString(warnStyle.Render(fmt.Sprintf("Sure to delete #%d? (y/n)", a.confirmID)))
	case a.err != "":
		b.WriteString(errorStyle.Render(a.err))
	case a.status != "":
		b.WriteString(okStyle.Render(a.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: next field  ←/→: category  enter: submit  d: delete  q: quit (table)  ctrl+c: quit"))
	return b.String()
}

func (a App) viewForm() string {
	category := dimStyle.Render("Spend Category")
	if a.categoryIdx >= 0 {
		c := a.categories[a.categoryIdx]
		category = lipgloss.NewStyle().Foreground(categoryColor(c)).Render(c.Label())
	}
	if a.focus == focusCategory {
		category = "‹ " + category + " ›"
	}

	rows := []string{
		sectionStyle.Render("Add New Expense:"),
		label("Name", a.focus == focusName) + a.nameInput.View(),
		label("Category", a.focus == focusCategory) + category,
		label("Amount", a.focus == focusAmount) + a.amountInput.View(),
	}
	return strings.Join(rows, "\n") + "\n"
}

func label(s string, focused bool) string {
	if focused {
		return focusLabelStyle.Render(fmt.Sprintf("%-10s", s))
	}
	return labelStyle.Render(fmt.Sprintf("%-10s", s))
}

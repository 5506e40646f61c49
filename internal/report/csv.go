package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"spendtracker/internal/core"
)

// ExpenseRow is one CSV line; headers match the table in the UI.
type ExpenseRow struct {
	ID       int64  `csv:"ID"`
	Name     string `csv:"Expense Name"`
	Category string `csv:"Category"`
	Amount   string `csv:"Expense Amount"`
}

func toRows(entries []core.Entry) []*ExpenseRow {
	rows := make([]*ExpenseRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &ExpenseRow{
			ID:       e.ID,
			Name:     neutralizeFormula(e.Name),
			Category: e.Category.Label(),
			Amount:   e.Amount.String(),
		})
	}
	return rows
}

// WriteCSV writes entries in insertion order with a header row. An empty
// ledger produces just the header.
func WriteCSV(w io.Writer, entries []core.Entry) error {
	rows := toRows(entries)
	if len(rows) == 0 {
		_, err := io.WriteString(w, "ID,Expense Name,Category,Expense Amount\n")
		return err
	}
	data, err := gocsv.MarshalBytes(rows)
	if err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]*ExpenseRow, error) {
	var rows []*ExpenseRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	for _, row := range rows {
		row.Name = strings.TrimPrefix(row.Name, "'")
	}
	return rows, nil
}

// Spreadsheets evaluate cells starting with these characters.
func neutralizeFormula(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

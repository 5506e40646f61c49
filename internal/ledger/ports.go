// Package ledger owns the expense entries of a session and keeps the
// per-category totals in step with every addition and removal.
package ledger

import (
	"context"

	"spendtracker/internal/core"
)

// Book is the port every ledger backend implements.
//
// Invariant: after any successful call, CategoryTotals()[c] equals the sum of
// Amount over Entries() with Category c, for every category c.
type Book interface {
	// AddExpense validates the fields, assigns the next id and appends the
	// entry. Invalid input returns an error wrapping core.ErrInvalidEntry and
	// leaves the book untouched.
	AddExpense(ctx context.Context, name string, category core.Category, amount core.Money) (core.Entry, error)

	// RemoveExpense deletes the entry with the given id. Removing an unknown
	// id is a no-op and reports false.
	RemoveExpense(ctx context.Context, id int64) (removed core.Entry, ok bool, err error)

	// Entries returns a copy of the entries in insertion order.
	Entries(ctx context.Context) ([]core.Entry, error)

	// CategoryTotals returns a copy of the totals, one key per category.
	CategoryTotals(ctx context.Context) (core.Totals, error)
}

package ledger

import (
	"context"
	"sync"

	"spendtracker/internal/core"
)

// Ledger is the in-memory Book. The zero value is not usable; call New.
type Ledger struct {
	mu      sync.Mutex
	entries []core.Entry
	totals  core.Totals
	lastID  int64
}

var _ Book = (*Ledger)(nil)

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{totals: core.NewTotals()}
}

func (l *Ledger) AddExpense(_ context.Context, name string, category core.Category, amount core.Money) (core.Entry, error) {
	d := core.Draft{Name: name, Category: category, Amount: amount}
	if err := d.Validate(); err != nil {
		return core.Entry{}, err
	}
	d = d.Normalized()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Ids come from a counter, not from the current maximum, so an id freed by
	// a removal is never handed out again.
	l.lastID++
	e := core.Entry{ID: l.lastID, Name: d.Name, Category: d.Category, Amount: d.Amount}
	l.entries = append(l.entries, e)
	l.totals[e.Category] = l.totals[e.Category].Add(e.Amount)
	return e, nil
}

func (l *Ledger) RemoveExpense(_ context.Context, id int64) (core.Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.entries {
		if l.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Entry{}, false, nil
	}

	// Read the amount from the entry being removed before touching the slice.
	removed := l.entries[idx]
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	l.totals[removed.Category] = l.totals[removed.Category].Sub(removed.Amount)
	return removed, true, nil
}

func (l *Ledger) Entries(_ context.Context) ([]core.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Entry(nil), l.entries...), nil
}

func (l *Ledger) CategoryTotals(_ context.Context) (core.Totals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals.Clone(), nil
}

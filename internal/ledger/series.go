package ledger

import (
	"github.com/shopspring/decimal"

	"spendtracker/internal/core"
)

// Slice is one wedge of the category pie.
type Slice struct {
	Category core.Category `json:"category"`
	Name     string        `json:"name"`
	Value    core.Money    `json:"-"`
	Percent  float64       `json:"percent"`
}

var hundred = decimal.NewFromInt(100)

// Series turns totals into chart-ready slices, one per category in display
// order. Percent is rounded to one decimal and is zero when nothing was spent.
func Series(t core.Totals) []Slice {
	sum := t.Sum()
	out := make([]Slice, 0, len(core.Categories))
	for _, c := range core.Categories {
		v := t[c]
		s := Slice{Category: c, Name: c.Label(), Value: v}
		if !sum.IsZero() {
			s.Percent, _ = v.Amount.Mul(hundred).Div(sum.Amount).Round(1).Float64()
		}
		out = append(out, s)
	}
	return out
}

// Largest returns the slice with the highest value, or false if every
// category is zero.
func Largest(series []Slice) (Slice, bool) {
	var best Slice
	found := false
	for _, s := range series {
		if s.Value.IsZero() {
			continue
		}
		if !found || s.Value.Amount.GreaterThan(best.Value.Amount) {
			best, found = s, true
		}
	}
	return best, found
}

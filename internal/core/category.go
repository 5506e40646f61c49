package core

import "strings"

// Category is one of the fixed expense classifications.
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Groceries     Category = "Groceries"
	RentAndAssets Category = "RentAndAssets"
	Miscellaneous Category = "Miscellaneous"
)

// Categories lists every category in display order.
var Categories = []Category{Food, Transport, Groceries, RentAndAssets, Miscellaneous}

var labels = map[Category]string{
	Food:          "Food",
	Transport:     "Transport",
	Groceries:     "Groceries",
	RentAndAssets: "Rent and Assets",
	Miscellaneous: "Miscellaneous",
}

// aliases maps lower-cased user input to a category.
var aliases = map[string]Category{
	"food":            Food,
	"transport":       Transport,
	"groceries":       Groceries,
	"rentandassets":   RentAndAssets,
	"rent and assets": RentAndAssets,
	"miscellaneous":   Miscellaneous,
	"miscallaneous":   Miscellaneous,
}

func (c Category) IsValid() bool {
	_, ok := labels[c]
	return ok
}

// Label returns the human-readable name, e.g. "Rent and Assets".
func (c Category) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts the identifier or the label, case-insensitively.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if c, ok := aliases[key]; ok {
		return c, nil
	}
	return "", ErrUnknownCategory
}

// Totals maps each category to its accumulated amount.
type Totals map[Category]Money

// NewTotals returns totals with every category set to zero.
func NewTotals() Totals {
	t := make(Totals, len(Categories))
	for _, c := range Categories {
		t[c] = Zero
	}
	return t
}

// Clone returns an independent copy.
func (t Totals) Clone() Totals {
	out := make(Totals, len(t))
	for c, m := range t {
		out[c] = m
	}
	return out
}

// Sum returns the grand total over all categories.
func (t Totals) Sum() Money {
	sum := Zero
	for _, c := range Categories {
		sum = sum.Add(t[c])
	}
	return sum
}

// Equal reports whether both totals hold the same amount for every category.
func (t Totals) Equal(o Totals) bool {
	for _, c := range Categories {
		if !t[c].Equal(o[c]) {
			return false
		}
	}
	return true
}

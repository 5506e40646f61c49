// Package report renders the ledger as downloadable files.
package report

import (
	"fmt"

	"spendtracker/internal/core"
)

// RGB is an 8-bit colour.
type RGB struct{ R, G, B int }

func (c RGB) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// Category colours are shared by every chart so a category looks the same
// in the browser, the terminal and the PDF.
var palette = map[core.Category]RGB{
	core.Food:          {R: 84, G: 112, B: 198},
	core.Transport:     {R: 145, G: 204, B: 117},
	core.Groceries:     {R: 250, G: 200, B: 88},
	core.RentAndAssets: {R: 238, G: 102, B: 102},
	core.Miscellaneous: {R: 115, G: 192, B: 222},
}

var fallback = RGB{R: 160, G: 160, B: 160}

func Color(c core.Category) RGB {
	if rgb, ok := palette[c]; ok {
		return rgb
	}
	return fallback
}

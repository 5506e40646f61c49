package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"spendtracker/internal/core"
	"spendtracker/internal/ledger"
)

// Summary is everything the PDF shows.
type Summary struct {
	Entries     []core.Entry
	Series      []ledger.Slice
	Total       core.Money
	Currency    string
	GeneratedAt time.Time
}

var (
	headerColor     = RGB{R: 30, G: 58, B: 95}
	headerTextColor = RGB{R: 255, G: 255, B: 255}
	bodyTextColor   = RGB{R: 40, G: 40, B: 40}
	lineColor       = RGB{R: 200, G: 200, B: 200}
)

const (
	pieRadius  = 40.0
	arcStepDeg = 2.0
)

// WritePDF renders a one-page report: the category pie with its legend,
// then the entry table.
func WritePDF(w io.Writer, s Summary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	symbol := pdfCurrency(s.Currency)
	if !s.GeneratedAt.IsZero() {
		pdf.SetCreationDate(s.GeneratedAt)
	}
	pdf.SetTitle("Monthly Expense Tracker", false)
	pdf.AddPage()

	pdf.SetFillColor(headerColor.R, headerColor.G, headerColor.B)
	pdf.SetTextColor(headerTextColor.R, headerTextColor.G, headerTextColor.B)
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, "  Monthly Expense Tracker", "", 1, "L", true, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(bodyTextColor.R, bodyTextColor.G, bodyTextColor.B)
	sectionTitle(pdf, "Expense Analyzer")

	top := pdf.GetY()
	cx, cy := 15+pieRadius, top+pieRadius
	if s.Total.IsZero() {
		pdf.SetDrawColor(lineColor.R, lineColor.G, lineColor.B)
		pdf.Circle(cx, cy, pieRadius, "D")
	} else {
		start := -90.0
		for _, slice := range s.Series {
			if slice.Value.IsZero() {
				continue
			}
			sweep := 360 * slice.Value.Float() / s.Total.Float()
			c := Color(slice.Category)
			pdf.SetFillColor(c.R, c.G, c.B)
			pdf.Polygon(wedgePoints(cx, cy, pieRadius, start, sweep), "F")
			start += sweep
		}
	}

	legendX := cx + pieRadius + 15
	pdf.SetXY(legendX, top+8)
	pdf.SetFont("Arial", "", 10)
	for _, slice := range s.Series {
		c := Color(slice.Category)
		y := pdf.GetY()
		pdf.SetFillColor(c.R, c.G, c.B)
		pdf.Rect(legendX, y+1.5, 4, 4, "F")
		pdf.SetX(legendX + 6)
		label := fmt.Sprintf("%s  %s%s  (%.1f%%)", slice.Name, symbol, slice.Value.String(), slice.Percent)
		pdf.CellFormat(80, 7, tr(label), "", 1, "L", false, 0, "")
		pdf.SetX(legendX)
	}
	pdf.SetX(legendX + 6)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 7, tr("Total  "+symbol+s.Total.String()), "", 1, "L", false, 0, "")

	pdf.SetY(top + 2*pieRadius + 10)
	sectionTitle(pdf, "Expenses")
	writeTable(pdf, tr, s.Entries, symbol)

	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	footer := "Generated by spendtracker"
	if !s.GeneratedAt.IsZero() {
		footer += " on " + s.GeneratedAt.Format("2006-01-02 15:04")
	}
	pdf.CellFormat(0, 10, footer, "", 0, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(7)
	pdf.SetDrawColor(lineColor.R, lineColor.G, lineColor.B)
	pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
	pdf.Ln(4)
}

func writeTable(pdf *gofpdf.Fpdf, tr func(string) string, entries []core.Entry, symbol string) {
	widths := []float64{90, 55, 45}
	headers := []string{"Expense Name", "Category", "Expense Amount"}

	pdf.SetFont("Arial", "B", 10)
	for i, h := range headers {
		align := "L"
		if i == 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	if len(entries) == 0 {
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 7, "No expenses recorded.", "", 1, "L", false, 0, "")
		pdf.SetTextColor(bodyTextColor.R, bodyTextColor.G, bodyTextColor.B)
		return
	}
	for _, e := range entries {
		pdf.CellFormat(widths[0], 6, tr(truncate(e.Name, 48)), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, e.Category.Label(), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(symbol+e.Amount.String()), "", 1, "R", false, 0, "")
	}
}

// wedgePoints approximates a pie wedge as a polygon: the centre followed by
// points along the arc from start to start+sweep degrees. Angles grow
// clockwise on the page because PDF y grows downwards here.
func wedgePoints(cx, cy, r, start, sweep float64) []gofpdf.PointType {
	steps := int(math.Ceil(sweep / arcStepDeg))
	if steps < 1 {
		steps = 1
	}
	pts := make([]gofpdf.PointType, 0, steps+2)
	pts = append(pts, gofpdf.PointType{X: cx, Y: cy})
	for i := 0; i <= steps; i++ {
		a := (start + sweep*float64(i)/float64(steps)) * math.Pi / 180
		pts = append(pts, gofpdf.PointType{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)})
	}
	return pts
}

// The core fonts are cp1252; symbols outside it are spelled out.
func pdfCurrency(symbol string) string {
	switch symbol {
	case "₹":
		return "Rs. "
	case "":
		return ""
	}
	for _, r := range symbol {
		if r > 0xFF && r != '€' {
			return ""
		}
	}
	return symbol
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n-1])) + "…"
}

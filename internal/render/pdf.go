// Package render draws invoice documents.
package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"payout-invoice-backend/internal/models"
	"payout-invoice-backend/internal/services/normalize"

	"github.com/go-pdf/fpdf"
)

type column struct {
	title string
	width float64
	align string
}

// usable width of a landscape Letter page with half-inch margins is 254mm
var columns = []column{
	{"Restaurant", 50, "L"},
	{"Platform", 26, "L"},
	{"Orders", 16, "R"},
	{"Gross Pay", 24, "R"},
	{"Taxes Transferred", 26, "R"},
	{"Taxes (Platform)", 24, "R"},
	{"Subtotal", 22, "R"},
	{"Marketplace Fee", 24, "R"},
	{"Error Charges", 20, "R"},
	{"Net Pay", 22, "R"},
}

const (
	margin    = 12.7
	rowHeight = 6.5
)

// PDFRenderer lays an owner invoice out as a landscape Letter page with one table
// row per restaurant platform and the owner totals underneath.
type PDFRenderer struct {
	Title string
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Title: "Payout Invoice"}
}

func (r *PDFRenderer) Render(ctx context.Context, invoice models.OwnerInvoice, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := r.Write(invoice, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Write renders the invoice to w.
func (r *PDFRenderer) Write(invoice models.OwnerInvoice, w io.Writer) error {
	pdf := fpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Bill owner: "+invoice.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Period: "+invoice.Period), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(33, 37, 41)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range columns {
			pdf.CellFormat(c.width, rowHeight, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	shade := false
	for _, rest := range invoice.Restaurants {
		for i, p := range rest.Platforms {
			if pdf.GetY()+rowHeight > pageHeight-margin {
				pdf.AddPage()
				header()
			}
			name := ""
			if i == 0 {
				name = rest.Name
			}
			cells := []string{
				tr(truncate(pdf, name, columns[0].width)),
				tr(p.Platform),
				strconv.FormatInt(p.Orders, 10),
				normalize.FormatMoney(p.GrossPay),
				normalize.FormatMoney(p.TaxesTransferred),
				normalize.FormatMoney(p.TaxesPlatform),
				normalize.FormatMoney(p.Subtotal),
				normalize.FormatMoney(p.MarketplaceFee),
				normalize.FormatMoney(p.ErrorCharges),
				normalize.FormatMoney(p.NetPay),
			}
			if shade {
				pdf.SetFillColor(242, 242, 242)
			} else {
				pdf.SetFillColor(255, 255, 255)
			}
			for j, c := range columns {
				pdf.CellFormat(c.width, rowHeight, cells[j], "1", 0, c.align, true, 0, "")
			}
			pdf.Ln(-1)
		}
		shade = !shade
	}

	pdf.Ln(6)
	fin := invoice.Financials
	totals := []struct {
		label string
		value float64
	}{
		{"Total Payout", fin.TotalPayout},
		{"Ad Fees", fin.AdFees},
		{"Aggregator Fee", fin.AggregatorFee},
		{"Final Net Payout", fin.FinalNetPayout},
	}
	for i, t := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(200, 7, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(54, 7, normalize.FormatMoney(t.value), "", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render invoice for %s: %w", invoice.Name, err)
	}
	return nil
}

func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

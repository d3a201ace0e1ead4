package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"cellarbook/internal/domain"
)

// Seller is printed in the invoice header.
type Seller struct {
	Name  string
	Email string
}

// InvoicePDF renders a single-page A4 invoice. Core fonts are cp1252, so text
// goes through the translator to keep accented wine names readable.
func InvoicePDF(w io.Writer, seller Seller, inv domain.Invoice) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.Number, true)
	pdf.SetCreator("cellarbook", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(seller.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(seller.Email), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Invoice "+inv.Number, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr("Bill to: "+inv.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Issued: "+inv.IssuedAt+"    Due: "+inv.DueAt, "", 1, "L", false, 0, "")
	status := "Status: " + string(inv.Status)
	if inv.PaidAt != "" {
		status += " (" + inv.PaidAt + ")"
	}
	pdf.CellFormat(0, 5, status, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	widths := []float64{80, 20, 30, 20, 30}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 228, 230)
	for i, h := range []string{"Wine", "Qty", "Unit price", "Disc. %", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range inv.Lines {
		pdf.CellFormat(widths[0], 6, tr(l.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, strconv.Itoa(l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, l.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, l.Discount.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, l.Total.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[4], 8, inv.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}
	return pdf.Output(w)
}

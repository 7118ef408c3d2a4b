// Package export renders purchase orders into printable documents.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/procureflow/procureflow/internal/platform/money"
	"github.com/procureflow/procureflow/internal/purchasing"
)

// PDFRenderer renders a purchase order as an A4 PDF.
type PDFRenderer struct {
	CompanyName string
	Currency    string
}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer(companyName, currency string) *PDFRenderer {
	return &PDFRenderer{CompanyName: companyName, Currency: currency}
}

// ContentType of the rendered document.
func (r *PDFRenderer) ContentType() string {
	return "application/pdf"
}

// Render writes d to w.
func (r *PDFRenderer) Render(w io.Writer, d purchasing.Detail) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Purchase Order "+d.Number, true)
	pdf.SetAuthor(r.CompanyName, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(r.CompanyName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "PURCHASE ORDER "+d.Number, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	header := [][2]string{
		{"Supplier", d.SupplierName},
		{"Requested by", d.RequestorEmail},
		{"Purpose", d.Purpose},
		{"Date requested", d.DateRequested.Format(purchasing.DateLayout)},
		{"Delivery date", d.DeliveryDate.Format(purchasing.DateLayout)},
		{"Status", d.Status},
	}
	for _, row := range header {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, tr(row[1]), "", "L", false)
	}
	pdf.Ln(4)

	widths := []float64{10, 90, 20, 35, 35}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, title := range []string{"#", "Description", "Qty", "Unit price", "Amount"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, title, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for i, it := range d.Items {
		pdf.CellFormat(widths[0], 7, strconv.Itoa(i+1), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, tr(truncate(it.Description, 55)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, strconv.Itoa(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money.Format(it.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, money.Format(it.TotalCost), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	totals := [][2]string{
		{"Subtotal", money.FormatWithCurrency(r.Currency, d.Subtotal)},
		{"VAT", money.FormatWithCurrency(r.Currency, d.VAT())},
		{"Shipping fee", money.FormatWithCurrency(r.Currency, d.ShippingFee)},
		{"Discount", money.FormatWithCurrency(r.Currency, d.Discount)},
		{"Total", money.FormatWithCurrency(r.Currency, d.Total)},
	}
	labelWidth := widths[0] + widths[1] + widths[2] + widths[3]
	for i, row := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(labelWidth, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, row[1], "", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: build pdf: %w", err)
	}
	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/eyuksel/reimbursement-api/internal/core/datamodel/expenseform"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
)

// Generator renders an expense form as a printable reimbursement document.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate produces the PDF for a form, with the owner's bank details in
// the payment block.
func (g *Generator) Generate(form *expenseform.ExpenseForm, owner *usermodel.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	// cp1254 covers the Turkish characters in merchant and category names.
	tr := pdf.UnicodeTranslatorFromDescriptor("cp1254")

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, tr("Masraf Formu"), "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Form No: %d", form.FormNumber)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Tarih: %s", form.SubmittedAt.Format("02.01.2006"))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, tr(form.Title), "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	if form.Location != "" {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Yer: %s", form.Location)), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Durum: %s", form.Status)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	g.ownerBlock(pdf, tr, owner)
	pdf.Ln(4)

	headers := []string{"Tarih", "Satıcı", "Kategori", "Açıklama", "Tutar"}
	widths := []float64{22, 40, 30, 60, 28}
	g.tableRow(pdf, tr, headers, widths, true)

	for _, exp := range form.Expenses {
		row := []string{
			exp.Date.Format("02.01.2006"),
			exp.Merchant,
			exp.Category,
			exp.Description,
			fmt.Sprintf("%s %s", exp.Amount.StringFixed(2), exp.Currency),
		}
		g.tableRow(pdf, tr, row, widths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Toplam: %s TRY", form.TotalAmount.StringFixed(2))), "", 1, "R", false, 0, "")

	if form.RejectionReason != nil && *form.RejectionReason != "" {
		pdf.Ln(2)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetFont(g.fontName, "", 10)
		pdf.MultiCell(0, 5, tr(fmt.Sprintf("Red nedeni: %s", *form.RejectionReason)), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(8)
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(90, 6, tr("Hazırlayan"), "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 6, tr("Onaylayan"), "", 1, "L", false, 0, "")
	pdf.CellFormat(90, 14, "______________________", "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 14, "______________________", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render form PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) ownerBlock(pdf *gofpdf.Fpdf, tr func(string) string, owner *usermodel.User) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, tr("Ödeme Bilgileri"), "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)

	if owner == nil {
		pdf.MultiCell(0, 5, tr("Hesap bilgisi bulunamadı."), "", "L", false)
		return
	}

	holder := owner.AccountHolder
	if holder == "" {
		holder = owner.Name
	}
	lines := []string{
		fmt.Sprintf("Ad Soyad: %s", owner.Name),
		fmt.Sprintf("Hesap Sahibi: %s", holder),
		fmt.Sprintf("IBAN: %s", safeValue(owner.IBAN)),
		fmt.Sprintf("Banka: %s %s", safeValue(owner.BankName), owner.BankBranch),
		fmt.Sprintf("Telefon: %s", safeValue(owner.Phone)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func (g *Generator) tableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(g.fontName, style, 9)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

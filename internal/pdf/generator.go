package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-service/internal/model"
)

// Generator renders AIA-style pay-application artifacts: the G702 summary,
// the G703 continuation sheet, and a combined export concatenating both.
// Rendering is a pure function of the document; no amounts are recomputed.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

func (g *Generator) GenerateG702(doc model.PayAppDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	g.writeG702(pdf, doc)
	return output(pdf)
}

func (g *Generator) GenerateG703(doc model.PayAppDocument) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	g.writeG703(pdf, doc)
	return output(pdf)
}

func (g *Generator) GenerateCombined(doc model.PayAppDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	g.writeG702(pdf, doc)
	pdf.AddPageFormat("L", gofpdf.SizeType{Wd: 297, Ht: 210})
	g.writeG703Body(pdf, doc)
	return output(pdf)
}

func (g *Generator) writeG702(pdf *gofpdf.Fpdf, doc model.PayAppDocument) {
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "APPLICATION AND CERTIFICATE FOR PAYMENT", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 5, "AIA Document G702", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	app := doc.Application
	snap := app.Snapshot

	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Project: %s", doc.Project.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Application No: %d", app.ApplicationNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Period: %s to %s", formatDate(app.PeriodFrom), formatDate(app.PeriodTo)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", app.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	lines := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"1. Original Contract Sum", snap.OriginalContract},
		{"2. Net Change by Change Orders", snap.ChangeOrdersTotal},
		{"3. Contract Sum to Date", snap.ContractToDate},
		{"4. Total Completed and Stored to Date", snap.TotalCompleted},
		{"5. Retainage", snap.RetainageAmount},
		{"6. Total Earned Less Retainage", snap.TotalEarnedLessRetainage},
		{"7. Less Previous Certificates for Payment", snap.LessPreviousCertificates},
		{"8. Current Payment Due", snap.CurrentPaymentDue},
	}

	pdf.SetFont(g.fontName, "", 10)
	for _, line := range lines {
		style := ""
		if strings.HasPrefix(line.label, "8.") {
			style = "B"
		}
		pdf.SetFont(g.fontName, style, 10)
		pdf.CellFormat(130, 8, line.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 8, formatMoney(line.amount), "1", 1, "R", false, 0, "")
	}

	if app.Notes != "" {
		pdf.Ln(3)
		pdf.SetFont(g.fontName, "I", 9)
		pdf.MultiCell(0, 5, "Notes: "+app.Notes, "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 8, "Signatures", "", 1, "L", false, 0, "")
	signatureLine(pdf, g.fontName, "Contractor", findSigner(doc.Signatures, model.SignatureTypeContractor))
	signatureLine(pdf, g.fontName, "Architect", findSigner(doc.Signatures, model.SignatureTypeArchitect))
}

func (g *Generator) writeG703(pdf *gofpdf.Fpdf, doc model.PayAppDocument) {
	pdf.AddPage()
	g.writeG703Body(pdf, doc)
}

func (g *Generator) writeG703Body(pdf *gofpdf.Fpdf, doc model.PayAppDocument) {
	pdf.SetFont(g.fontName, "B", 13)
	pdf.CellFormat(0, 9, "CONTINUATION SHEET", "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 5, "AIA Document G703", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Application No: %d, Period: %s to %s",
		doc.Application.ApplicationNumber,
		formatDate(doc.Application.PeriodFrom),
		formatDate(doc.Application.PeriodTo),
	), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	headers := []string{"No.", "Description of Work", "Scheduled Value", "Previous", "This Period", "Materials Stored", "Total Completed", "%", "Balance to Finish", "Retainage"}
	widths := []float64{10, 62, 28, 25, 25, 28, 28, 12, 28, 28}
	drawTableRow(pdf, g.fontName, headers, widths, true)

	totals := struct {
		scheduled, previous, current, materials, completed, balance, retainage decimal.Decimal
	}{
		decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero,
	}

	for i, item := range doc.Items {
		completed := item.TotalCompleted()
		balance := item.ScheduledValue.Sub(completed)
		retainage := item.Retainage()

		row := []string{
			fmt.Sprintf("%d", i+1),
			item.Description,
			formatMoney(item.ScheduledValue),
			formatMoney(item.WorkCompletedPrevious),
			formatMoney(item.WorkCompletedCurrent),
			formatMoney(item.MaterialsStored),
			formatMoney(completed),
			percentComplete(completed, item.ScheduledValue),
			formatMoney(balance),
			formatMoney(retainage),
		}
		drawTableRow(pdf, g.fontName, row, widths, false)

		totals.scheduled = totals.scheduled.Add(item.ScheduledValue)
		totals.previous = totals.previous.Add(item.WorkCompletedPrevious)
		totals.current = totals.current.Add(item.WorkCompletedCurrent)
		totals.materials = totals.materials.Add(item.MaterialsStored)
		totals.completed = totals.completed.Add(completed)
		totals.balance = totals.balance.Add(balance)
		totals.retainage = totals.retainage.Add(retainage)
	}

	totalRow := []string{
		"",
		"GRAND TOTAL",
		formatMoney(totals.scheduled),
		formatMoney(totals.previous),
		formatMoney(totals.current),
		formatMoney(totals.materials),
		formatMoney(totals.completed),
		percentComplete(totals.completed, totals.scheduled),
		formatMoney(totals.balance),
		formatMoney(totals.retainage),
	}
	drawTableRow(pdf, g.fontName, totalRow, widths, true)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	size := 8.0
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, size)
	for i, col := range cols {
		align := "L"
		if i > 1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureLine(pdf *gofpdf.Fpdf, fontName, label string, record *model.SignatureRecord) {
	pdf.SetFont(fontName, "", 10)
	if record == nil {
		pdf.CellFormat(0, 7, fmt.Sprintf("%s: ______________________ (unsigned)", label), "", 1, "L", false, 0, "")
		return
	}
	name := record.SignerName
	if record.SignerTitle != "" {
		name = fmt.Sprintf("%s, %s", name, record.SignerTitle)
	}
	pdf.CellFormat(0, 7, fmt.Sprintf("%s: /signed/ %s on %s", label, name, formatDate(record.SignedAt)), "", 1, "L", false, 0, "")
}

func findSigner(records []model.SignatureRecord, sigType model.SignatureType) *model.SignatureRecord {
	for i := range records {
		if records[i].Type == sigType {
			return &records[i]
		}
	}
	return nil
}

func percentComplete(completed, scheduled decimal.Decimal) string {
	if scheduled.IsZero() {
		return "-"
	}
	pct := completed.Div(scheduled).Mul(decimal.NewFromInt(100))
	return pct.StringFixed(1)
}

func formatMoney(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("01/02/2006")
}

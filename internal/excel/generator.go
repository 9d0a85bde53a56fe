package excel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/crewtrack/billing-service/internal/model"
)

// Generator writes the continuation-sheet workbook: a summary sheet with the
// G702 figures and a detail sheet with every schedule-of-values line.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(doc model.PayAppDocument) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, doc); err != nil {
		return nil, err
	}

	detailSheet := "Continuation"
	file.NewSheet(detailSheet)
	if err := g.writeContinuation(file, detailSheet, doc); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, doc model.PayAppDocument) error {
	app := doc.Application
	snap := app.Snapshot

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Project")
	set("B1", doc.Project.Name)
	set("A2", "Application No")
	set("B2", app.ApplicationNumber)
	set("A3", "Period From")
	set("B3", formatDate(app.PeriodFrom))
	set("A4", "Period To")
	set("B4", formatDate(app.PeriodTo))
	set("A5", "Status")
	set("B5", string(app.Status))

	rows := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Original Contract Sum", snap.OriginalContract},
		{"Net Change by Change Orders", snap.ChangeOrdersTotal},
		{"Contract Sum to Date", snap.ContractToDate},
		{"Total Completed and Stored to Date", snap.TotalCompleted},
		{"Retainage", snap.RetainageAmount},
		{"Total Earned Less Retainage", snap.TotalEarnedLessRetainage},
		{"Less Previous Certificates", snap.LessPreviousCertificates},
		{"Current Payment Due", snap.CurrentPaymentDue},
	}
	for i, row := range rows {
		set(fmt.Sprintf("A%d", 7+i), row.label)
		set(fmt.Sprintf("B%d", 7+i), formatAmount(row.amount))
	}

	_ = file.SetColWidth(sheet, "A", "A", 38)
	_ = file.SetColWidth(sheet, "B", "B", 20)
	return nil
}

func (g *Generator) writeContinuation(file *excelize.File, sheet string, doc model.PayAppDocument) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Item No.",
		"Description of Work",
		"Scheduled Value",
		"Work Completed Previous",
		"Work Completed This Period",
		"Materials Stored",
		"Total Completed and Stored",
		"% Complete",
		"Balance to Finish",
		"Retainage",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, item := range doc.Items {
		completed := item.TotalCompleted()
		row := 2 + i
		set(fmt.Sprintf("A%d", row), i+1)
		set(fmt.Sprintf("B%d", row), item.Description)
		set(fmt.Sprintf("C%d", row), formatAmount(item.ScheduledValue))
		set(fmt.Sprintf("D%d", row), formatAmount(item.WorkCompletedPrevious))
		set(fmt.Sprintf("E%d", row), formatAmount(item.WorkCompletedCurrent))
		set(fmt.Sprintf("F%d", row), formatAmount(item.MaterialsStored))
		set(fmt.Sprintf("G%d", row), formatAmount(completed))
		set(fmt.Sprintf("H%d", row), percentComplete(completed, item.ScheduledValue))
		set(fmt.Sprintf("I%d", row), formatAmount(item.ScheduledValue.Sub(completed)))
		set(fmt.Sprintf("J%d", row), formatAmount(item.Retainage()))
	}

	_ = file.SetColWidth(sheet, "A", "A", 10)
	_ = file.SetColWidth(sheet, "B", "B", 45)
	_ = file.SetColWidth(sheet, "C", "J", 18)
	return nil
}

func formatAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func percentComplete(completed, scheduled decimal.Decimal) string {
	if scheduled.IsZero() {
		return ""
	}
	return completed.Div(scheduled).Mul(decimal.NewFromInt(100)).StringFixed(1)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

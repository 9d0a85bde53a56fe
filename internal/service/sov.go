package service

import (
	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-service/internal/model"
)

// LedgerTotals aggregates the schedule of values. Pure; decimal accumulation
// keeps many-line projects free of float drift.
type LedgerTotals struct {
	TotalCompleted decimal.Decimal
	Retainage      decimal.Decimal
}

func ComputeLedgerTotals(items []model.BudgetItem) LedgerTotals {
	totals := LedgerTotals{
		TotalCompleted: decimal.Zero,
		Retainage:      decimal.Zero,
	}
	for _, item := range items {
		completed := item.TotalCompleted()
		totals.TotalCompleted = totals.TotalCompleted.Add(completed)
		totals.Retainage = totals.Retainage.Add(item.Retainage())
	}
	return totals
}

// BuildSnapshot derives the full monetary snapshot from ledger totals,
// approved change orders and already-certified prior applications.
// current_payment_due clamps at zero: overpayment shows as zero due, never
// negative.
func BuildSnapshot(
	originalContract decimal.Decimal,
	changeOrdersTotal decimal.Decimal,
	totals LedgerTotals,
	previousCertificates decimal.Decimal,
) model.Snapshot {
	earned := totals.TotalCompleted.Sub(totals.Retainage)
	due := earned.Sub(previousCertificates)
	if due.IsNegative() {
		due = decimal.Zero
	}
	return model.Snapshot{
		OriginalContract:         originalContract,
		ChangeOrdersTotal:        changeOrdersTotal,
		ContractToDate:           originalContract.Add(changeOrdersTotal),
		TotalCompleted:           totals.TotalCompleted,
		RetainageAmount:          totals.Retainage,
		TotalEarnedLessRetainage: earned,
		LessPreviousCertificates: previousCertificates,
		CurrentPaymentDue:        due,
	}
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetItem is one schedule-of-values line. Mutated by the contractor
// between billing periods; never deleted once an approved pay application
// references the project's ledger.
type BudgetItem struct {
	ID                    uuid.UUID
	ProjectID             uuid.UUID
	Description           string
	ScheduledValue        decimal.Decimal
	WorkCompletedPrevious decimal.Decimal
	WorkCompletedCurrent  decimal.Decimal
	MaterialsStored       decimal.Decimal
	RetainagePercent      decimal.Decimal // 0..100
	SortOrder             int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TotalCompleted is work from prior periods plus the current period plus
// materials presently stored on site.
func (b BudgetItem) TotalCompleted() decimal.Decimal {
	return b.WorkCompletedPrevious.Add(b.WorkCompletedCurrent).Add(b.MaterialsStored)
}

// Retainage is the withheld share of the line's completed work.
func (b BudgetItem) Retainage() decimal.Decimal {
	return b.TotalCompleted().Mul(b.RetainagePercent).Div(decimal.NewFromInt(100))
}

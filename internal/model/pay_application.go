package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayAppStatus string

const (
	PayAppStatusDraft     PayAppStatus = "DRAFT"
	PayAppStatusSubmitted PayAppStatus = "SUBMITTED"
	PayAppStatusApproved  PayAppStatus = "APPROVED"
	PayAppStatusRejected  PayAppStatus = "REJECTED"
	PayAppStatusPaid      PayAppStatus = "PAID"
)

// Snapshot is the point-in-time materialization of the project ledger for
// one billing period. Recomputed on demand while the application is a draft,
// frozen from submission on.
type Snapshot struct {
	OriginalContract         decimal.Decimal
	ChangeOrdersTotal        decimal.Decimal
	ContractToDate           decimal.Decimal
	TotalCompleted           decimal.Decimal
	RetainageAmount          decimal.Decimal
	TotalEarnedLessRetainage decimal.Decimal
	LessPreviousCertificates decimal.Decimal
	CurrentPaymentDue        decimal.Decimal
}

type PayApplication struct {
	ID                uuid.UUID
	ProjectID         uuid.UUID
	ApplicationNumber int
	PeriodFrom        time.Time
	PeriodTo          time.Time
	Notes             string
	Status            PayAppStatus
	Snapshot          Snapshot
	SubmittedAt       *time.Time
	ApprovedAt        *time.Time
	RejectedAt        *time.Time
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a PayApplication) IsDraft() bool { return a.Status == PayAppStatusDraft }

// CountsTowardPreviousCertificates reports whether this application's
// current payment due is subtracted from future applications.
func (a PayApplication) CountsTowardPreviousCertificates() bool {
	return a.Status == PayAppStatusApproved || a.Status == PayAppStatusPaid
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ChangeOrderStatus string

const (
	ChangeOrderStatusPending  ChangeOrderStatus = "PENDING"
	ChangeOrderStatusApproved ChangeOrderStatus = "APPROVED"
	ChangeOrderStatusRejected ChangeOrderStatus = "REJECTED"
)

// ChangeOrder amount is signed: deductive change orders are negative.
// Approved change orders are immutable.
type ChangeOrder struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Number      int
	Description string
	Amount      decimal.Decimal
	Status      ChangeOrderStatus
	ApprovedAt  *time.Time
	CreatedAt   time.Time
}

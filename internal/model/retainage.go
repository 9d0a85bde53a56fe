package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RetainageRelease struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Amount      decimal.Decimal
	ReleaseDate time.Time
	Description string
	CreatedAt   time.Time
}

// RetainageSummary is derived at read time; releases are recorded
// independently of pay-application status.
type RetainageSummary struct {
	TotalRetainage decimal.Decimal
	TotalReleased  decimal.Decimal
	Remaining      decimal.Decimal
	OverReleased   bool
	Releases       []RetainageRelease
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Project struct {
	ID               uuid.UUID
	Name             string
	OwnerOrgID       uuid.UUID
	ContractorOrgID  uuid.UUID
	ArchitectName    string
	OriginalContract decimal.Decimal
	CreatedAt        time.Time
}

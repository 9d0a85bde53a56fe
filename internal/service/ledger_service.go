package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type ProjectRepo interface {
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
}

type BudgetRepo interface {
	ListBudgetItems(ctx context.Context, projectID uuid.UUID) ([]model.BudgetItem, error)
	GetBudgetItem(ctx context.Context, id uuid.UUID) (*model.BudgetItem, error)
	CreateBudgetItem(ctx context.Context, item model.BudgetItem) (*model.BudgetItem, error)
	UpdateBudgetItem(ctx context.Context, item model.BudgetItem) (*model.BudgetItem, error)
	DeleteBudgetItem(ctx context.Context, id uuid.UUID) error
}

// PayAppLookup is the slice of the pay-application store the ledger needs to
// decide whether the schedule of values is frozen.
type PayAppLookup interface {
	ListPayApplications(ctx context.Context, projectID uuid.UUID) ([]model.PayApplication, error)
}

type ChangeOrderRepo interface {
	ListChangeOrders(ctx context.Context, projectID uuid.UUID) ([]model.ChangeOrder, error)
	GetChangeOrder(ctx context.Context, id uuid.UUID) (*model.ChangeOrder, error)
	CreateChangeOrder(ctx context.Context, order model.ChangeOrder) (*model.ChangeOrder, error)
	SetChangeOrderStatus(ctx context.Context, id uuid.UUID, status model.ChangeOrderStatus, approvedAt *time.Time) error
	ApprovedTotal(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error)
}

// LedgerService owns the schedule-of-values line items and the change-order
// ledger. Both feed the pay-application snapshot; neither triggers
// recalculation by itself — draft applications pick changes up on the next
// recalculate.
type LedgerService struct {
	projects     ProjectRepo
	budget       BudgetRepo
	changeOrders ChangeOrderRepo
	payApps      PayAppLookup
}

func NewLedgerService(projects ProjectRepo, budget BudgetRepo, changeOrders ChangeOrderRepo, payApps PayAppLookup) *LedgerService {
	return &LedgerService{projects: projects, budget: budget, changeOrders: changeOrders, payApps: payApps}
}

type BudgetItemInput struct {
	Description           string
	ScheduledValue        decimal.Decimal
	WorkCompletedPrevious decimal.Decimal
	WorkCompletedCurrent  decimal.Decimal
	MaterialsStored       decimal.Decimal
	RetainagePercent      decimal.Decimal
	SortOrder             int
}

func validateBudgetItemInput(input BudgetItemInput) error {
	if strings.TrimSpace(input.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if input.ScheduledValue.IsNegative() {
		return fmt.Errorf("%w: scheduled_value must not be negative", ErrInvalidInput)
	}
	if input.WorkCompletedPrevious.IsNegative() || input.WorkCompletedCurrent.IsNegative() || input.MaterialsStored.IsNegative() {
		return fmt.Errorf("%w: completed work and stored materials must not be negative", ErrInvalidInput)
	}
	if input.RetainagePercent.IsNegative() || input.RetainagePercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: retainage_percent must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

func (s *LedgerService) ListBudgetItems(ctx context.Context, projectID uuid.UUID) ([]model.BudgetItem, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.budget.ListBudgetItems(ctx, projectID)
}

func (s *LedgerService) CreateBudgetItem(ctx context.Context, projectID uuid.UUID, input BudgetItemInput) (*model.BudgetItem, error) {
	if err := validateBudgetItemInput(input); err != nil {
		return nil, err
	}
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.budget.CreateBudgetItem(ctx, model.BudgetItem{
		ProjectID:             projectID,
		Description:           strings.TrimSpace(input.Description),
		ScheduledValue:        input.ScheduledValue,
		WorkCompletedPrevious: input.WorkCompletedPrevious,
		WorkCompletedCurrent:  input.WorkCompletedCurrent,
		MaterialsStored:       input.MaterialsStored,
		RetainagePercent:      input.RetainagePercent,
		SortOrder:             input.SortOrder,
	})
}

func (s *LedgerService) UpdateBudgetItem(ctx context.Context, id uuid.UUID, input BudgetItemInput) (*model.BudgetItem, error) {
	if err := validateBudgetItemInput(input); err != nil {
		return nil, err
	}
	item, err := s.budget.GetBudgetItem(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	item.Description = strings.TrimSpace(input.Description)
	item.ScheduledValue = input.ScheduledValue
	item.WorkCompletedPrevious = input.WorkCompletedPrevious
	item.WorkCompletedCurrent = input.WorkCompletedCurrent
	item.MaterialsStored = input.MaterialsStored
	item.RetainagePercent = input.RetainagePercent
	item.SortOrder = input.SortOrder
	return s.budget.UpdateBudgetItem(ctx, *item)
}

// DeleteBudgetItem removes a schedule-of-values line. Once any application on
// the project has been approved or paid the ledger backs certified history and
// lines may no longer be deleted, only zeroed out via update.
func (s *LedgerService) DeleteBudgetItem(ctx context.Context, id uuid.UUID) error {
	item, err := s.budget.GetBudgetItem(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}

	apps, err := s.payApps.ListPayApplications(ctx, item.ProjectID)
	if err != nil {
		return err
	}
	for _, app := range apps {
		if app.CountsTowardPreviousCertificates() {
			return fmt.Errorf("%w: ledger is frozen once an application is certified", ErrInvalidTransition)
		}
	}

	if err := s.budget.DeleteBudgetItem(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	return nil
}

type ChangeOrderInput struct {
	Description string
	Amount      decimal.Decimal
}

func (s *LedgerService) ListChangeOrders(ctx context.Context, projectID uuid.UUID) ([]model.ChangeOrder, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.changeOrders.ListChangeOrders(ctx, projectID)
}

// CreateChangeOrder records a pending change order. Amount is signed;
// deductive change orders carry a negative amount.
func (s *LedgerService) CreateChangeOrder(ctx context.Context, projectID uuid.UUID, input ChangeOrderInput) (*model.ChangeOrder, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.changeOrders.CreateChangeOrder(ctx, model.ChangeOrder{
		ProjectID:   projectID,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Status:      model.ChangeOrderStatusPending,
	})
}

// SetChangeOrderStatus applies the externally driven pending → approved or
// pending → rejected decision. Approved change orders are immutable.
func (s *LedgerService) SetChangeOrderStatus(ctx context.Context, id uuid.UUID, status model.ChangeOrderStatus) (*model.ChangeOrder, error) {
	order, err := s.changeOrders.GetChangeOrder(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if order.Status != model.ChangeOrderStatusPending {
		return nil, fmt.Errorf("%w: change order is %s", ErrInvalidTransition, order.Status)
	}
	if status != model.ChangeOrderStatusApproved && status != model.ChangeOrderStatusRejected {
		return nil, fmt.Errorf("%w: change order may only become APPROVED or REJECTED", ErrInvalidTransition)
	}

	var approvedAt *time.Time
	if status == model.ChangeOrderStatusApproved {
		now := time.Now().UTC()
		approvedAt = &now
	}
	if err := s.changeOrders.SetChangeOrderStatus(ctx, id, status, approvedAt); err != nil {
		return nil, err
	}
	order.Status = status
	order.ApprovedAt = approvedAt
	return order, nil
}

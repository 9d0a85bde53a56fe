package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type RetainageRepo interface {
	ListReleases(ctx context.Context, projectID uuid.UUID) ([]model.RetainageRelease, error)
	GetRelease(ctx context.Context, id uuid.UUID) (*model.RetainageRelease, error)
	CreateRelease(ctx context.Context, release model.RetainageRelease) (*model.RetainageRelease, error)
	DeleteRelease(ctx context.Context, id uuid.UUID) error
	SumReleases(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error)
}

// RetainageService tracks partial releases against withheld retainage,
// independent of pay-application status. Releasing more than is withheld is
// surfaced as a warning, not blocked: final-release rounding corrections are
// legitimate.
type RetainageService struct {
	releases RetainageRepo
	budget   BudgetRepo
	projects ProjectRepo
	audit    *AuditService
}

func NewRetainageService(releases RetainageRepo, budget BudgetRepo, projects ProjectRepo, audit *AuditService) *RetainageService {
	return &RetainageService{releases: releases, budget: budget, projects: projects, audit: audit}
}

func (s *RetainageService) Summary(ctx context.Context, projectID uuid.UUID) (*model.RetainageSummary, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := s.budget.ListBudgetItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	totals := ComputeLedgerTotals(items)

	releases, err := s.releases.ListReleases(ctx, projectID)
	if err != nil {
		return nil, err
	}
	released := decimal.Zero
	for _, release := range releases {
		released = released.Add(release.Amount)
	}

	return &model.RetainageSummary{
		TotalRetainage: totals.Retainage,
		TotalReleased:  released,
		Remaining:      totals.Retainage.Sub(released),
		OverReleased:   released.GreaterThan(totals.Retainage),
		Releases:       releases,
	}, nil
}

type AddReleaseInput struct {
	Amount      decimal.Decimal
	ReleaseDate time.Time
	Description string
	Principal   model.Principal
}

func (s *RetainageService) AddRelease(ctx context.Context, projectID uuid.UUID, input AddReleaseInput) (*model.RetainageSummary, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: release amount must be positive", ErrInvalidInput)
	}
	if input.ReleaseDate.IsZero() {
		return nil, fmt.Errorf("%w: release_date is required", ErrInvalidInput)
	}
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	release, err := s.releases.CreateRelease(ctx, model.RetainageRelease{
		ProjectID:   projectID,
		Amount:      input.Amount,
		ReleaseDate: input.ReleaseDate,
		Description: input.Description,
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   input.Principal.Name,
		Action:      model.AuditReleaseAdded,
		Description: fmt.Sprintf("Retainage release of %s recorded", input.Amount.StringFixed(2)),
		Metadata: map[string]any{
			"release_id": release.ID.String(),
			"amount":     input.Amount.String(),
		},
	}); err != nil {
		return nil, err
	}

	return s.Summary(ctx, projectID)
}

func (s *RetainageService) DeleteRelease(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	release, err := s.releases.GetRelease(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	if err := s.releases.DeleteRelease(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	return s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   release.ProjectID,
		ActorName:   principal.Name,
		Action:      model.AuditReleaseDeleted,
		Description: fmt.Sprintf("Retainage release of %s deleted", release.Amount.StringFixed(2)),
		Metadata: map[string]any{
			"release_id": release.ID.String(),
			"amount":     release.Amount.String(),
		},
	})
}

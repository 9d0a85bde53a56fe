package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/crewtrack/billing-service/internal/model"
)

type AuditRepo interface {
	Append(ctx context.Context, entry model.AuditLogEntry) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]model.AuditLogEntry, error)
}

// AuditService is the append-only compliance trail. Append is synchronous:
// compliance-critical operations (reminders, cancellations, transitions) are
// not done until their entry is written.
type AuditService struct {
	repo AuditRepo
}

func NewAuditService(repo AuditRepo) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) Append(ctx context.Context, entry model.AuditLogEntry) error {
	return s.repo.Append(ctx, entry)
}

func (s *AuditService) List(ctx context.Context, projectID uuid.UUID, limit int) ([]model.AuditLogEntry, error) {
	if projectID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByProject(ctx, projectID, limit)
}

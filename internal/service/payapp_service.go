package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type PayAppRepo interface {
	GetPayApplication(ctx context.Context, id uuid.UUID) (*model.PayApplication, error)
	ListPayApplications(ctx context.Context, projectID uuid.UUID) ([]model.PayApplication, error)
	CreatePayApplication(ctx context.Context, app model.PayApplication) (*model.PayApplication, error)
	UpdateSnapshot(ctx context.Context, id uuid.UUID, snap model.Snapshot) error
	UpdateMetadata(ctx context.Context, id uuid.UUID, periodFrom, periodTo time.Time, notes string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PayAppStatus, submittedAt, approvedAt, rejectedAt, paidAt *time.Time) error
	SumPreviousCertificates(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error)
}

// projectLocks serializes lifecycle-mutating operations per project so
// concurrent creates, recalculations and transitions cannot interleave into
// an inconsistent less_previous_certificates.
type projectLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (p *projectLocks) lock(projectID uuid.UUID) func() {
	p.mu.Lock()
	lock, ok := p.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[projectID] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// PayAppService owns the pay-application approval state machine and the
// derived monetary snapshot for each billing period.
type PayAppService struct {
	payApps      PayAppRepo
	projects     ProjectRepo
	budget       BudgetRepo
	changeOrders ChangeOrderRepo
	signatures   SignatureRepo
	audit        *AuditService
	notifier     Notifier
	log          zerolog.Logger
	locks        *projectLocks
}

func NewPayAppService(
	payApps PayAppRepo,
	projects ProjectRepo,
	budget BudgetRepo,
	changeOrders ChangeOrderRepo,
	signatures SignatureRepo,
	audit *AuditService,
	notifier Notifier,
	log zerolog.Logger,
) *PayAppService {
	return &PayAppService{
		payApps:      payApps,
		projects:     projects,
		budget:       budget,
		changeOrders: changeOrders,
		signatures:   signatures,
		audit:        audit,
		notifier:     notifier,
		log:          log,
		locks:        newProjectLocks(),
	}
}

// legalTransitions is the whole state machine. draft → submitted →
// {approved, rejected}, approved → paid. rejected and paid are terminal;
// correcting a rejected application means creating a new one.
var legalTransitions = map[model.PayAppStatus][]model.PayAppStatus{
	model.PayAppStatusDraft:     {model.PayAppStatusSubmitted},
	model.PayAppStatusSubmitted: {model.PayAppStatusApproved, model.PayAppStatusRejected},
	model.PayAppStatusApproved:  {model.PayAppStatusPaid},
}

func transitionAllowed(from, to model.PayAppStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type CreatePayAppInput struct {
	ProjectID  uuid.UUID
	PeriodFrom time.Time
	PeriodTo   time.Time
	Notes      string
	Principal  model.Principal
}

// buildSnapshot re-derives the authoritative snapshot from current ledger
// state. Client-side previews are advisory only.
func (s *PayAppService) buildSnapshot(ctx context.Context, project *model.Project) (model.Snapshot, error) {
	items, err := s.budget.ListBudgetItems(ctx, project.ID)
	if err != nil {
		return model.Snapshot{}, err
	}
	approvedChanges, err := s.changeOrders.ApprovedTotal(ctx, project.ID)
	if err != nil {
		return model.Snapshot{}, err
	}
	previous, err := s.payApps.SumPreviousCertificates(ctx, project.ID)
	if err != nil {
		return model.Snapshot{}, err
	}
	return BuildSnapshot(project.OriginalContract, approvedChanges, ComputeLedgerTotals(items), previous), nil
}

func (s *PayAppService) Create(ctx context.Context, input CreatePayAppInput) (*model.PayApplication, error) {
	if input.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidInput)
	}
	if input.PeriodFrom.IsZero() || input.PeriodTo.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}
	if input.PeriodFrom.After(input.PeriodTo) {
		return nil, fmt.Errorf("%w: period_from must be before or equal to period_to", ErrInvalidInput)
	}

	unlock := s.locks.lock(input.ProjectID)
	defer unlock()

	project, err := s.projects.GetProject(ctx, input.ProjectID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	snapshot, err := s.buildSnapshot(ctx, project)
	if err != nil {
		return nil, err
	}

	app, err := s.payApps.CreatePayApplication(ctx, model.PayApplication{
		ProjectID:  input.ProjectID,
		PeriodFrom: input.PeriodFrom,
		PeriodTo:   input.PeriodTo,
		Notes:      input.Notes,
		Status:     model.PayAppStatusDraft,
		Snapshot:   snapshot,
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   app.ProjectID,
		ActorName:   input.Principal.Name,
		Action:      model.AuditPayAppCreated,
		Description: fmt.Sprintf("Pay application #%d created", app.ApplicationNumber),
		Metadata: map[string]any{
			"application_id":     app.ID.String(),
			"application_number": app.ApplicationNumber,
			"current_payment_due": app.Snapshot.CurrentPaymentDue.String(),
		},
	}); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *PayAppService) Get(ctx context.Context, id uuid.UUID) (*model.PayApplication, error) {
	app, err := s.payApps.GetPayApplication(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return app, nil
}

func (s *PayAppService) List(ctx context.Context, projectID uuid.UUID) ([]model.PayApplication, error) {
	if _, err := s.projects.GetProject(ctx, projectID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.payApps.ListPayApplications(ctx, projectID)
}

// Recalculate re-derives the snapshot from current ledger state. Draft only;
// idempotent for unchanged inputs.
func (s *PayAppService) Recalculate(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.PayApplication, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(app.ProjectID)
	defer unlock()

	// Re-read under the lock; a concurrent transition may have frozen it.
	app, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.IsDraft() {
		return nil, fmt.Errorf("%w: snapshot is frozen once submitted", ErrInvalidTransition)
	}

	project, err := s.projects.GetProject(ctx, app.ProjectID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.buildSnapshot(ctx, project)
	if err != nil {
		return nil, err
	}
	if err := s.payApps.UpdateSnapshot(ctx, app.ID, snapshot); err != nil {
		return nil, err
	}
	app.Snapshot = snapshot

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   app.ProjectID,
		ActorName:   principal.Name,
		Action:      model.AuditPayAppRecalculated,
		Description: fmt.Sprintf("Pay application #%d recalculated", app.ApplicationNumber),
		Metadata: map[string]any{
			"application_id":      app.ID.String(),
			"current_payment_due": snapshot.CurrentPaymentDue.String(),
		},
	}); err != nil {
		return nil, err
	}
	return app, nil
}

type UpdateMetadataInput struct {
	PeriodFrom  time.Time
	PeriodTo    time.Time
	Notes       string
	Recalculate bool
	Principal   model.Principal
}

// UpdateMetadata edits period dates and notes on a draft. The snapshot is
// untouched unless the caller explicitly asks for recalculation.
func (s *PayAppService) UpdateMetadata(ctx context.Context, id uuid.UUID, input UpdateMetadataInput) (*model.PayApplication, error) {
	if input.PeriodFrom.IsZero() || input.PeriodTo.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}
	if input.PeriodFrom.After(input.PeriodTo) {
		return nil, fmt.Errorf("%w: period_from must be before or equal to period_to", ErrInvalidInput)
	}

	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.IsDraft() {
		return nil, fmt.Errorf("%w: only drafts are editable", ErrInvalidTransition)
	}
	if err := s.payApps.UpdateMetadata(ctx, id, input.PeriodFrom, input.PeriodTo, input.Notes); err != nil {
		return nil, err
	}

	if input.Recalculate {
		return s.Recalculate(ctx, id, input.Principal)
	}
	app.PeriodFrom = input.PeriodFrom
	app.PeriodTo = input.PeriodTo
	app.Notes = input.Notes
	return app, nil
}

// Transition moves the application along the state machine, writes the audit
// entry, and emits the matching notification intent. Notification failures
// are logged and swallowed: the state change is authoritative even when the
// channel is down.
func (s *PayAppService) Transition(ctx context.Context, id uuid.UUID, target model.PayAppStatus, principal model.Principal) (*model.PayApplication, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(app.ProjectID)
	defer unlock()

	app, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(app.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, app.Status, target)
	}

	now := time.Now().UTC()
	var submittedAt, approvedAt, rejectedAt, paidAt *time.Time
	var action model.AuditAction
	switch target {
	case model.PayAppStatusSubmitted:
		submittedAt = &now
		action = model.AuditPayAppSubmitted
	case model.PayAppStatusApproved:
		approvedAt = &now
		action = model.AuditPayAppApproved
	case model.PayAppStatusRejected:
		rejectedAt = &now
		action = model.AuditPayAppRejected
	case model.PayAppStatusPaid:
		paidAt = &now
		action = model.AuditPayAppPaid
	default:
		return nil, fmt.Errorf("%w: unknown status %s", ErrInvalidTransition, target)
	}

	if err := s.payApps.UpdateStatus(ctx, id, target, submittedAt, approvedAt, rejectedAt, paidAt); err != nil {
		return nil, err
	}
	app.Status = target
	if submittedAt != nil {
		app.SubmittedAt = submittedAt
	}
	if approvedAt != nil {
		app.ApprovedAt = approvedAt
	}
	if rejectedAt != nil {
		app.RejectedAt = rejectedAt
	}
	if paidAt != nil {
		app.PaidAt = paidAt
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   app.ProjectID,
		ActorName:   principal.Name,
		Action:      action,
		Description: fmt.Sprintf("Pay application #%d %s", app.ApplicationNumber, string(target)),
		Metadata: map[string]any{
			"application_id":      app.ID.String(),
			"application_number":  app.ApplicationNumber,
			"current_payment_due": app.Snapshot.CurrentPaymentDue.String(),
		},
	}); err != nil {
		return nil, err
	}

	s.dispatchTransitionIntent(ctx, app, target)
	return app, nil
}

func (s *PayAppService) dispatchTransitionIntent(ctx context.Context, app *model.PayApplication, target model.PayAppStatus) {
	var intentType NotificationType
	switch target {
	case model.PayAppStatusSubmitted:
		intentType = NotifyPayAppSubmitted
	case model.PayAppStatusApproved:
		intentType = NotifyPayAppApproved
	default:
		return
	}

	intent := NotificationIntent{
		Type: intentType,
		Payload: map[string]any{
			"project_id":          app.ProjectID.String(),
			"application_id":      app.ID.String(),
			"application_number":  app.ApplicationNumber,
			"period_from":         app.PeriodFrom.Format("2006-01-02"),
			"period_to":           app.PeriodTo.Format("2006-01-02"),
			"current_payment_due": app.Snapshot.CurrentPaymentDue.String(),
		},
	}
	if err := s.notifier.Notify(ctx, intent); err != nil {
		s.log.Error().Err(err).
			Str("type", string(intentType)).
			Str("application_id", app.ID.String()).
			Msg("notification dispatch failed")
	}
}

// Document assembles everything the G702/G703 exporters need. Pure read.
func (s *PayAppService) Document(ctx context.Context, id uuid.UUID) (*model.PayAppDocument, error) {
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetProject(ctx, app.ProjectID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	items, err := s.budget.ListBudgetItems(ctx, app.ProjectID)
	if err != nil {
		return nil, err
	}
	signatures, err := s.signatures.ListRecords(ctx, model.DocumentTypePayApplication, app.ID)
	if err != nil {
		return nil, err
	}
	return &model.PayAppDocument{
		Project:     *project,
		Application: *app,
		Items:       items,
		Signatures:  signatures,
	}, nil
}

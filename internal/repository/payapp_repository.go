package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type PayAppRepository struct {
	db *gorm.DB
}

func NewPayAppRepository(db *gorm.DB) *PayAppRepository {
	return &PayAppRepository{db: db}
}

type payAppRow struct {
	ID                       uuid.UUID
	ProjectID                uuid.UUID
	ApplicationNumber        int
	PeriodFrom               time.Time
	PeriodTo                 time.Time
	Notes                    string
	Status                   model.PayAppStatus
	OriginalContract         decimal.Decimal
	ChangeOrdersTotal        decimal.Decimal
	ContractToDate           decimal.Decimal
	TotalCompleted           decimal.Decimal
	RetainageAmount          decimal.Decimal
	TotalEarnedLessRetainage decimal.Decimal
	LessPreviousCertificates decimal.Decimal
	CurrentPaymentDue        decimal.Decimal
	SubmittedAt              *time.Time
	ApprovedAt               *time.Time
	RejectedAt               *time.Time
	PaidAt                   *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

const payAppColumns = `
	id,
	project_id,
	application_number,
	period_from,
	period_to,
	COALESCE(notes, '') AS notes,
	status,
	original_contract,
	change_orders_total,
	contract_to_date,
	total_completed,
	retainage_amount,
	total_earned_less_retainage,
	less_previous_certificates,
	current_payment_due,
	submitted_at,
	approved_at,
	rejected_at,
	paid_at,
	created_at,
	updated_at`

func (row payAppRow) toModel() model.PayApplication {
	return model.PayApplication{
		ID:                row.ID,
		ProjectID:         row.ProjectID,
		ApplicationNumber: row.ApplicationNumber,
		PeriodFrom:        row.PeriodFrom,
		PeriodTo:          row.PeriodTo,
		Notes:             row.Notes,
		Status:            row.Status,
		Snapshot: model.Snapshot{
			OriginalContract:         row.OriginalContract,
			ChangeOrdersTotal:        row.ChangeOrdersTotal,
			ContractToDate:           row.ContractToDate,
			TotalCompleted:           row.TotalCompleted,
			RetainageAmount:          row.RetainageAmount,
			TotalEarnedLessRetainage: row.TotalEarnedLessRetainage,
			LessPreviousCertificates: row.LessPreviousCertificates,
			CurrentPaymentDue:        row.CurrentPaymentDue,
		},
		SubmittedAt: row.SubmittedAt,
		ApprovedAt:  row.ApprovedAt,
		RejectedAt:  row.RejectedAt,
		PaidAt:      row.PaidAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func (r *PayAppRepository) GetPayApplication(ctx context.Context, id uuid.UUID) (*model.PayApplication, error) {
	var row payAppRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+payAppColumns+`
		FROM pay_applications
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	app := row.toModel()
	return &app, nil
}

func (r *PayAppRepository) ListPayApplications(ctx context.Context, projectID uuid.UUID) ([]model.PayApplication, error) {
	var rows []payAppRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+payAppColumns+`
		FROM pay_applications
		WHERE project_id = ?
		ORDER BY application_number ASC
	`, projectID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	apps := make([]model.PayApplication, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.toModel())
	}
	return apps, nil
}

// CreatePayApplication assigns the next sequential application number inside
// the insert so two creations cannot claim the same number.
func (r *PayAppRepository) CreatePayApplication(ctx context.Context, app model.PayApplication) (*model.PayApplication, error) {
	var row payAppRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Raw(`
			INSERT INTO pay_applications (
				project_id,
				application_number,
				period_from,
				period_to,
				notes,
				status,
				original_contract,
				change_orders_total,
				contract_to_date,
				total_completed,
				retainage_amount,
				total_earned_less_retainage,
				less_previous_certificates,
				current_payment_due
			) VALUES (
				?,
				(SELECT COALESCE(MAX(application_number), 0) + 1 FROM pay_applications WHERE project_id = ?),
				?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
			)
			RETURNING `+payAppColumns+`
		`,
			app.ProjectID,
			app.ProjectID,
			app.PeriodFrom,
			app.PeriodTo,
			app.Notes,
			app.Status,
			app.Snapshot.OriginalContract,
			app.Snapshot.ChangeOrdersTotal,
			app.Snapshot.ContractToDate,
			app.Snapshot.TotalCompleted,
			app.Snapshot.RetainageAmount,
			app.Snapshot.TotalEarnedLessRetainage,
			app.Snapshot.LessPreviousCertificates,
			app.Snapshot.CurrentPaymentDue,
		).Scan(&row).Error
	})
	if err != nil {
		return nil, err
	}
	saved := row.toModel()
	return &saved, nil
}

func (r *PayAppRepository) UpdateSnapshot(ctx context.Context, id uuid.UUID, snap model.Snapshot) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE pay_applications
		SET
			original_contract = ?,
			change_orders_total = ?,
			contract_to_date = ?,
			total_completed = ?,
			retainage_amount = ?,
			total_earned_less_retainage = ?,
			less_previous_certificates = ?,
			current_payment_due = ?,
			updated_at = NOW()
		WHERE id = ?
	`,
		snap.OriginalContract,
		snap.ChangeOrdersTotal,
		snap.ContractToDate,
		snap.TotalCompleted,
		snap.RetainageAmount,
		snap.TotalEarnedLessRetainage,
		snap.LessPreviousCertificates,
		snap.CurrentPaymentDue,
		id,
	).Error
}

func (r *PayAppRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, periodFrom, periodTo time.Time, notes string) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE pay_applications
		SET period_from = ?, period_to = ?, notes = ?, updated_at = NOW()
		WHERE id = ?
	`, periodFrom, periodTo, notes, id).Error
}

func (r *PayAppRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.PayAppStatus,
	submittedAt, approvedAt, rejectedAt, paidAt *time.Time,
) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE pay_applications
		SET
			status = ?,
			submitted_at = COALESCE(?, submitted_at),
			approved_at = COALESCE(?, approved_at),
			rejected_at = COALESCE(?, rejected_at),
			paid_at = COALESCE(?, paid_at),
			updated_at = NOW()
		WHERE id = ?
	`, status, submittedAt, approvedAt, rejectedAt, paidAt, id).Error
}

// SumPreviousCertificates totals current_payment_due across applications
// that have been approved or paid.
func (r *PayAppRepository) SumPreviousCertificates(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(current_payment_due), 0)
		FROM pay_applications
		WHERE project_id = ? AND status IN ('APPROVED', 'PAID')
	`, projectID).Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

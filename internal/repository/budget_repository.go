package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) ListBudgetItems(ctx context.Context, projectID uuid.UUID) ([]model.BudgetItem, error) {
	var items []model.BudgetItem
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			project_id,
			description,
			scheduled_value,
			work_completed_previous,
			work_completed_current,
			materials_stored,
			retainage_percent,
			sort_order,
			created_at,
			updated_at
		FROM budget_items
		WHERE project_id = ?
		ORDER BY sort_order ASC, created_at ASC
	`, projectID).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *BudgetRepository) GetBudgetItem(ctx context.Context, id uuid.UUID) (*model.BudgetItem, error) {
	var item model.BudgetItem
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			project_id,
			description,
			scheduled_value,
			work_completed_previous,
			work_completed_current,
			materials_stored,
			retainage_percent,
			sort_order,
			created_at,
			updated_at
		FROM budget_items
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&item).Error; err != nil {
		return nil, err
	}
	if item.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &item, nil
}

func (r *BudgetRepository) CreateBudgetItem(ctx context.Context, item model.BudgetItem) (*model.BudgetItem, error) {
	var saved model.BudgetItem
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO budget_items (
			project_id,
			description,
			scheduled_value,
			work_completed_previous,
			work_completed_current,
			materials_stored,
			retainage_percent,
			sort_order
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING
			id,
			project_id,
			description,
			scheduled_value,
			work_completed_previous,
			work_completed_current,
			materials_stored,
			retainage_percent,
			sort_order,
			created_at,
			updated_at
	`,
		item.ProjectID,
		item.Description,
		item.ScheduledValue,
		item.WorkCompletedPrevious,
		item.WorkCompletedCurrent,
		item.MaterialsStored,
		item.RetainagePercent,
		item.SortOrder,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *BudgetRepository) DeleteBudgetItem(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM budget_items WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *BudgetRepository) UpdateBudgetItem(ctx context.Context, item model.BudgetItem) (*model.BudgetItem, error) {
	var saved model.BudgetItem
	err := r.db.WithContext(ctx).Raw(`
		UPDATE budget_items
		SET
			description = ?,
			scheduled_value = ?,
			work_completed_previous = ?,
			work_completed_current = ?,
			materials_stored = ?,
			retainage_percent = ?,
			sort_order = ?,
			updated_at = NOW()
		WHERE id = ?
		RETURNING
			id,
			project_id,
			description,
			scheduled_value,
			work_completed_previous,
			work_completed_current,
			materials_stored,
			retainage_percent,
			sort_order,
			created_at,
			updated_at
	`,
		item.Description,
		item.ScheduledValue,
		item.WorkCompletedPrevious,
		item.WorkCompletedCurrent,
		item.MaterialsStored,
		item.RetainagePercent,
		item.SortOrder,
		item.ID,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	if saved.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &saved, nil
}

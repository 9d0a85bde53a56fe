package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type ChangeOrderRepository struct {
	db *gorm.DB
}

func NewChangeOrderRepository(db *gorm.DB) *ChangeOrderRepository {
	return &ChangeOrderRepository{db: db}
}

func (r *ChangeOrderRepository) ListChangeOrders(ctx context.Context, projectID uuid.UUID) ([]model.ChangeOrder, error) {
	var orders []model.ChangeOrder
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, project_id, number, description, amount, status, approved_at, created_at
		FROM change_orders
		WHERE project_id = ?
		ORDER BY number ASC
	`, projectID).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *ChangeOrderRepository) GetChangeOrder(ctx context.Context, id uuid.UUID) (*model.ChangeOrder, error) {
	var order model.ChangeOrder
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, project_id, number, description, amount, status, approved_at, created_at
		FROM change_orders
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&order).Error; err != nil {
		return nil, err
	}
	if order.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &order, nil
}

func (r *ChangeOrderRepository) CreateChangeOrder(ctx context.Context, order model.ChangeOrder) (*model.ChangeOrder, error) {
	var saved model.ChangeOrder
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO change_orders (project_id, number, description, amount, status)
		VALUES (
			?,
			(SELECT COALESCE(MAX(number), 0) + 1 FROM change_orders WHERE project_id = ?),
			?,
			?,
			?
		)
		RETURNING id, project_id, number, description, amount, status, approved_at, created_at
	`, order.ProjectID, order.ProjectID, order.Description, order.Amount, order.Status).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *ChangeOrderRepository) SetChangeOrderStatus(
	ctx context.Context,
	id uuid.UUID,
	status model.ChangeOrderStatus,
	approvedAt *time.Time,
) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE change_orders
		SET status = ?, approved_at = ?
		WHERE id = ?
	`, status, approvedAt, id).Error
}

// ApprovedTotal sums approved change orders only; pending and rejected
// orders never count toward contract value.
func (r *ChangeOrderRepository) ApprovedTotal(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(amount), 0)
		FROM change_orders
		WHERE project_id = ? AND status = 'APPROVED'
	`, projectID).Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

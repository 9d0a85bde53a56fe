package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type RetainageRepository struct {
	db *gorm.DB
}

func NewRetainageRepository(db *gorm.DB) *RetainageRepository {
	return &RetainageRepository{db: db}
}

func (r *RetainageRepository) ListReleases(ctx context.Context, projectID uuid.UUID) ([]model.RetainageRelease, error) {
	var releases []model.RetainageRelease
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, project_id, amount, release_date, COALESCE(description, '') AS description, created_at
		FROM retainage_releases
		WHERE project_id = ?
		ORDER BY release_date ASC, created_at ASC
	`, projectID).Scan(&releases).Error
	if err != nil {
		return nil, err
	}
	return releases, nil
}

func (r *RetainageRepository) GetRelease(ctx context.Context, id uuid.UUID) (*model.RetainageRelease, error) {
	var release model.RetainageRelease
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, project_id, amount, release_date, COALESCE(description, '') AS description, created_at
		FROM retainage_releases
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&release).Error; err != nil {
		return nil, err
	}
	if release.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &release, nil
}

func (r *RetainageRepository) CreateRelease(ctx context.Context, release model.RetainageRelease) (*model.RetainageRelease, error) {
	var saved model.RetainageRelease
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO retainage_releases (project_id, amount, release_date, description)
		VALUES (?, ?, ?, ?)
		RETURNING id, project_id, amount, release_date, COALESCE(description, '') AS description, created_at
	`, release.ProjectID, release.Amount, release.ReleaseDate, release.Description).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *RetainageRepository) DeleteRelease(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM retainage_releases WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RetainageRepository) SumReleases(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(amount), 0)
		FROM retainage_releases
		WHERE project_id = ?
	`, projectID).Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry model.AuditLogEntry) error {
	metaJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO audit_log (project_id, actor_name, action, description, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ProjectID, entry.ActorName, entry.Action, entry.Description, metaJSON).Error
}

func (r *AuditRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]model.AuditLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []model.AuditLogEntry
	raw := r.db.WithContext(ctx).Raw(`
		SELECT id, project_id, COALESCE(actor_name, '') AS actor_name, action,
			COALESCE(description, '') AS description, metadata, created_at
		FROM audit_log
		WHERE project_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, projectID, limit)

	sqlRows, err := raw.Rows()
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()

	for sqlRows.Next() {
		var entry model.AuditLogEntry
		var metaJSON []byte
		if err := sqlRows.Scan(&entry.ID, &entry.ProjectID, &entry.ActorName, &entry.Action,
			&entry.Description, &metaJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &entry.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type SignatureRepository struct {
	db *gorm.DB
}

func NewSignatureRepository(db *gorm.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// UpsertRecord replaces any existing signature of the same type on the
// document. Re-signing overwrites; there is at most one active record per
// (document, type).
func (r *SignatureRepository) UpsertRecord(ctx context.Context, record model.SignatureRecord) (*model.SignatureRecord, error) {
	var saved model.SignatureRecord
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO signature_records (
			document_type, document_id, signature_type, signer_name, signer_title, image_data, signed_at
		) VALUES (?, ?, ?, ?, ?, ?, NOW())
		ON CONFLICT (document_type, document_id, signature_type)
		DO UPDATE SET
			signer_name = EXCLUDED.signer_name,
			signer_title = EXCLUDED.signer_title,
			image_data = EXCLUDED.image_data,
			signed_at = NOW()
		RETURNING id, document_type, document_id, signature_type AS type, signer_name, signer_title, image_data, signed_at
	`,
		record.DocumentType,
		record.DocumentID,
		record.Type,
		record.SignerName,
		record.SignerTitle,
		record.ImageData,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *SignatureRepository) GetRecord(ctx context.Context, id uuid.UUID) (*model.SignatureRecord, error) {
	var record model.SignatureRecord
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, document_type, document_id, signature_type AS type, signer_name, signer_title, image_data, signed_at
		FROM signature_records
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&record).Error; err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &record, nil
}

func (r *SignatureRepository) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Exec(`DELETE FROM signature_records WHERE id = ?`, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *SignatureRepository) ListRecords(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRecord, error) {
	var records []model.SignatureRecord
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, document_type, document_id, signature_type AS type, signer_name, signer_title, image_data, signed_at
		FROM signature_records
		WHERE document_type = ? AND document_id = ?
		ORDER BY signed_at ASC
	`, docType, docID).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *SignatureRepository) CreateRequest(ctx context.Context, req model.SignatureRequest) (*model.SignatureRequest, error) {
	var saved model.SignatureRequest
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO signature_requests (
			token, document_type, document_id, signature_type, recipient_email, recipient_name, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, token, document_type, document_id, signature_type AS type, recipient_email, recipient_name,
			expires_at, completed_at, cancelled_at, created_at
	`,
		req.Token,
		req.DocumentType,
		req.DocumentID,
		req.Type,
		req.RecipientEmail,
		req.RecipientName,
		req.ExpiresAt,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *SignatureRepository) GetRequest(ctx context.Context, id uuid.UUID) (*model.SignatureRequest, error) {
	var req model.SignatureRequest
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, token, document_type, document_id, signature_type AS type, recipient_email, recipient_name,
			expires_at, completed_at, cancelled_at, created_at
		FROM signature_requests
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&req).Error; err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *SignatureRepository) GetRequestByToken(ctx context.Context, token string) (*model.SignatureRequest, error) {
	var req model.SignatureRequest
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, token, document_type, document_id, signature_type AS type, recipient_email, recipient_name,
			expires_at, completed_at, cancelled_at, created_at
		FROM signature_requests
		WHERE token = ?
		LIMIT 1
	`, token).Scan(&req).Error; err != nil {
		return nil, err
	}
	if req.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &req, nil
}

func (r *SignatureRepository) ListRequests(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRequest, error) {
	var reqs []model.SignatureRequest
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, token, document_type, document_id, signature_type AS type, recipient_email, recipient_name,
			expires_at, completed_at, cancelled_at, created_at
		FROM signature_requests
		WHERE document_type = ? AND document_id = ?
		ORDER BY created_at ASC
	`, docType, docID).Scan(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *SignatureRepository) MarkRequestCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE signature_requests
		SET completed_at = ?
		WHERE id = ? AND completed_at IS NULL
	`, completedAt, id).Error
}

func (r *SignatureRepository) MarkRequestCancelled(ctx context.Context, id uuid.UUID, cancelledAt time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE signature_requests
		SET cancelled_at = ?
		WHERE id = ? AND cancelled_at IS NULL
	`, cancelledAt, id).Error
}

// ClaimFullySignedFlag records that the fully-signed notification for the
// document has been sent. Returns true only for the caller that inserted the
// flag, so the notification goes out at most once across sessions.
func (r *SignatureRepository) ClaimFullySignedFlag(ctx context.Context, docType model.DocumentType, docID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO fully_signed_flags (document_type, document_id)
		VALUES (?, ?)
		ON CONFLICT (document_type, document_id) DO NOTHING
	`, docType, docID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ResetFullySignedFlag is intentionally absent: removing a signature flips
// completeness back to incomplete, but re-adding it must not re-send the
// notification.

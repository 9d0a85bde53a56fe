package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/crewtrack/billing-service/internal/model"
)

type SignatureRepo interface {
	UpsertRecord(ctx context.Context, record model.SignatureRecord) (*model.SignatureRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*model.SignatureRecord, error)
	DeleteRecord(ctx context.Context, id uuid.UUID) error
	ListRecords(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRecord, error)
	CreateRequest(ctx context.Context, req model.SignatureRequest) (*model.SignatureRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*model.SignatureRequest, error)
	GetRequestByToken(ctx context.Context, token string) (*model.SignatureRequest, error)
	ListRequests(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRequest, error)
	MarkRequestCompleted(ctx context.Context, id uuid.UUID, completedAt time.Time) error
	MarkRequestCancelled(ctx context.Context, id uuid.UUID, cancelledAt time.Time) error
	ClaimFullySignedFlag(ctx context.Context, docType model.DocumentType, docID uuid.UUID) (bool, error)
}

// SignatureService manages locally captured signatures and external
// token-credentialed requests, and decides when a document has become fully
// signed. The fully-signed notification is guarded by a persisted flag so it
// goes out at most once per document, across sessions and reloads.
type SignatureService struct {
	signatures     SignatureRepo
	payApps        PayAppRepo
	changeOrders   ChangeOrderRepo
	audit          *AuditService
	notifier       Notifier
	signingBaseURL string
	defaultExpiry  time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

func NewSignatureService(
	signatures SignatureRepo,
	payApps PayAppRepo,
	changeOrders ChangeOrderRepo,
	audit *AuditService,
	notifier Notifier,
	signingBaseURL string,
	defaultExpiry time.Duration,
	log zerolog.Logger,
) *SignatureService {
	return &SignatureService{
		signatures:     signatures,
		payApps:        payApps,
		changeOrders:   changeOrders,
		audit:          audit,
		notifier:       notifier,
		signingBaseURL: strings.TrimRight(signingBaseURL, "/"),
		defaultExpiry:  defaultExpiry,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func newSigningToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *SignatureService) SigningURL(token string) string {
	return s.signingBaseURL + "/sign/" + token
}

// resolveDocument returns the owning project and a human label for audit and
// notification payloads.
func (s *SignatureService) resolveDocument(ctx context.Context, docType model.DocumentType, docID uuid.UUID) (uuid.UUID, string, error) {
	switch docType {
	case model.DocumentTypePayApplication:
		app, err := s.payApps.GetPayApplication(ctx, docID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return uuid.Nil, "", ErrNotFound
			}
			return uuid.Nil, "", err
		}
		return app.ProjectID, fmt.Sprintf("pay application #%d", app.ApplicationNumber), nil
	case model.DocumentTypeChangeOrder:
		order, err := s.changeOrders.GetChangeOrder(ctx, docID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return uuid.Nil, "", ErrNotFound
			}
			return uuid.Nil, "", err
		}
		return order.ProjectID, fmt.Sprintf("change order #%d", order.Number), nil
	default:
		return uuid.Nil, "", fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, docType)
	}
}

type SaveSignatureInput struct {
	Type        model.SignatureType
	SignerName  string
	SignerTitle string
	ImageData   []byte
	Principal   model.Principal
}

func (s *SignatureService) SaveSignature(ctx context.Context, docType model.DocumentType, docID uuid.UUID, input SaveSignatureInput) (*model.SignatureRecord, error) {
	if strings.TrimSpace(input.SignerName) == "" {
		return nil, fmt.Errorf("%w: signer name is required", ErrInvalidInput)
	}

	projectID, docLabel, err := s.resolveDocument(ctx, docType, docID)
	if err != nil {
		return nil, err
	}

	record, err := s.signatures.UpsertRecord(ctx, model.SignatureRecord{
		DocumentType: docType,
		DocumentID:   docID,
		Type:         input.Type,
		SignerName:   strings.TrimSpace(input.SignerName),
		SignerTitle:  strings.TrimSpace(input.SignerTitle),
		ImageData:    input.ImageData,
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   input.Principal.Name,
		Action:      model.AuditSignatureSaved,
		Description: fmt.Sprintf("%s signature saved on %s", input.Type, docLabel),
		Metadata: map[string]any{
			"document_type":  string(docType),
			"document_id":    docID.String(),
			"signature_type": string(input.Type),
			"signer_name":    record.SignerName,
		},
	}); err != nil {
		return nil, err
	}

	if err := s.evaluateCompleteness(ctx, docType, docID, projectID, docLabel); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteSignature removes a captured signature and allows re-signing. The
// fully-signed flag is deliberately not reset: re-adding the signature must
// not trigger a second notification.
func (s *SignatureService) DeleteSignature(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	record, err := s.signatures.GetRecord(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}

	projectID, docLabel, err := s.resolveDocument(ctx, record.DocumentType, record.DocumentID)
	if err != nil {
		return err
	}

	if err := s.signatures.DeleteRecord(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}

	return s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   principal.Name,
		Action:      model.AuditSignatureDeleted,
		Description: fmt.Sprintf("%s signature deleted from %s", record.Type, docLabel),
		Metadata: map[string]any{
			"document_type":  string(record.DocumentType),
			"document_id":    record.DocumentID.String(),
			"signature_type": string(record.Type),
		},
	})
}

func (s *SignatureService) ListSignatures(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRecord, error) {
	if _, _, err := s.resolveDocument(ctx, docType, docID); err != nil {
		return nil, err
	}
	return s.signatures.ListRecords(ctx, docType, docID)
}

// IsComplete reports whether every required signature type for the document
// is present.
func (s *SignatureService) IsComplete(ctx context.Context, docType model.DocumentType, docID uuid.UUID) (bool, error) {
	records, err := s.signatures.ListRecords(ctx, docType, docID)
	if err != nil {
		return false, err
	}
	present := make(map[model.SignatureType]bool, len(records))
	for _, record := range records {
		present[record.Type] = true
	}
	for _, required := range model.RequiredSignatures(docType) {
		if !present[required] {
			return false, nil
		}
	}
	return true, nil
}

// evaluateCompleteness runs after every signature mutation. On the
// incomplete → complete edge it claims the persisted flag; only the claimer
// emits the fully-signed intent and audit entry.
func (s *SignatureService) evaluateCompleteness(ctx context.Context, docType model.DocumentType, docID uuid.UUID, projectID uuid.UUID, docLabel string) error {
	complete, err := s.IsComplete(ctx, docType, docID)
	if err != nil {
		return err
	}
	if !complete {
		return nil
	}

	claimed, err := s.signatures.ClaimFullySignedFlag(ctx, docType, docID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	records, err := s.signatures.ListRecords(ctx, docType, docID)
	if err != nil {
		return err
	}
	signers := make([]string, 0, len(records))
	for _, record := range records {
		signers = append(signers, record.SignerName)
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		Action:      model.AuditFullySigned,
		Description: fmt.Sprintf("All required signatures present on %s", docLabel),
		Metadata: map[string]any{
			"document_type": string(docType),
			"document_id":   docID.String(),
			"signers":       signers,
		},
	}); err != nil {
		return err
	}

	intent := NotificationIntent{
		Type: NotifyPayAppFullySigned,
		Payload: map[string]any{
			"project_id":    projectID.String(),
			"document_type": string(docType),
			"document_id":   docID.String(),
			"signers":       signers,
		},
	}
	if err := s.notifier.Notify(ctx, intent); err != nil {
		s.log.Error().Err(err).
			Str("document_id", docID.String()).
			Msg("fully-signed notification dispatch failed")
	}
	return nil
}

type RequestSignatureInput struct {
	DocumentType   model.DocumentType
	DocumentID     uuid.UUID
	Type           model.SignatureType
	RecipientEmail string
	RecipientName  string
	ExpiresIn      time.Duration
	Principal      model.Principal
}

type SignatureRequestResult struct {
	Request    model.SignatureRequest
	SigningURL string
}

func (s *SignatureService) RequestSignature(ctx context.Context, input RequestSignatureInput) (*SignatureRequestResult, error) {
	if strings.TrimSpace(input.RecipientEmail) == "" {
		return nil, fmt.Errorf("%w: recipient email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.RecipientName) == "" {
		return nil, fmt.Errorf("%w: recipient name is required", ErrInvalidInput)
	}

	projectID, docLabel, err := s.resolveDocument(ctx, input.DocumentType, input.DocumentID)
	if err != nil {
		return nil, err
	}

	expiresIn := input.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = s.defaultExpiry
	}

	token, err := newSigningToken()
	if err != nil {
		return nil, err
	}

	request, err := s.signatures.CreateRequest(ctx, model.SignatureRequest{
		Token:          token,
		DocumentType:   input.DocumentType,
		DocumentID:     input.DocumentID,
		Type:           input.Type,
		RecipientEmail: strings.TrimSpace(input.RecipientEmail),
		RecipientName:  strings.TrimSpace(input.RecipientName),
		ExpiresAt:      s.now().Add(expiresIn),
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   input.Principal.Name,
		Action:      model.AuditRequestCreated,
		Description: fmt.Sprintf("%s signature requested from %s for %s", input.Type, request.RecipientEmail, docLabel),
		Metadata: map[string]any{
			"request_id":     request.ID.String(),
			"document_type":  string(input.DocumentType),
			"document_id":    input.DocumentID.String(),
			"signature_type": string(input.Type),
			"recipient":      request.RecipientEmail,
			"expires_at":     request.ExpiresAt.Format(time.RFC3339),
		},
	}); err != nil {
		return nil, err
	}

	s.dispatchRequestIntent(ctx, NotifySignatureRequested, request, projectID, docLabel)

	return &SignatureRequestResult{
		Request:    *request,
		SigningURL: s.SigningURL(request.Token),
	}, nil
}

func (s *SignatureService) dispatchRequestIntent(ctx context.Context, intentType NotificationType, request *model.SignatureRequest, projectID uuid.UUID, docLabel string) {
	intent := NotificationIntent{
		Type:      intentType,
		Recipient: request.RecipientEmail,
		Payload: map[string]any{
			"project_id":     projectID.String(),
			"document_type":  string(request.DocumentType),
			"document_id":    request.DocumentID.String(),
			"document_label": docLabel,
			"signature_type": string(request.Type),
			"recipient_name": request.RecipientName,
			"signing_url":    s.SigningURL(request.Token),
			"expires_at":     request.ExpiresAt.Format(time.RFC3339),
		},
	}
	if err := s.notifier.Notify(ctx, intent); err != nil {
		s.log.Error().Err(err).
			Str("type", string(intentType)).
			Str("request_id", request.ID.String()).
			Msg("notification dispatch failed")
	}
}

func (s *SignatureService) getPendingRequest(ctx context.Context, id uuid.UUID) (*model.SignatureRequest, uuid.UUID, string, error) {
	request, err := s.signatures.GetRequest(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, uuid.Nil, "", ErrNotFound
		}
		return nil, uuid.Nil, "", err
	}
	switch request.StatusAt(s.now()) {
	case model.SignatureRequestExpired:
		return nil, uuid.Nil, "", ErrExpiredRequest
	case model.SignatureRequestCancelled, model.SignatureRequestCompleted:
		return nil, uuid.Nil, "", fmt.Errorf("%w: request is %s", ErrInvalidTransition, request.StatusAt(s.now()))
	}
	projectID, docLabel, err := s.resolveDocument(ctx, request.DocumentType, request.DocumentID)
	if err != nil {
		return nil, uuid.Nil, "", err
	}
	return request, projectID, docLabel, nil
}

// Resend re-emits the outbound notification for a pending request. Token and
// expiry stay as they are.
func (s *SignatureService) Resend(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	request, projectID, docLabel, err := s.getPendingRequest(ctx, id)
	if err != nil {
		return err
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   principal.Name,
		Action:      model.AuditRequestResent,
		Description: fmt.Sprintf("Signature request resent to %s for %s", request.RecipientEmail, docLabel),
		Metadata: map[string]any{
			"request_id": request.ID.String(),
			"recipient":  request.RecipientEmail,
		},
	}); err != nil {
		return err
	}

	s.dispatchRequestIntent(ctx, NotifySignatureRequested, request, projectID, docLabel)
	return nil
}

// SendReminder emits a reminder intent. The audit entry is written whether
// or not the dispatch succeeds; compliance wants the attempt on record.
func (s *SignatureService) SendReminder(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	request, projectID, docLabel, err := s.getPendingRequest(ctx, id)
	if err != nil {
		return err
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   principal.Name,
		Action:      model.AuditReminderSent,
		Description: fmt.Sprintf("Reminder sent to %s for %s", request.RecipientEmail, docLabel),
		Metadata: map[string]any{
			"request_id": request.ID.String(),
			"recipient":  request.RecipientEmail,
		},
	}); err != nil {
		return err
	}

	s.dispatchRequestIntent(ctx, NotifySignatureReminder, request, projectID, docLabel)
	return nil
}

// Cancel marks the request inactive. Expired requests may still be
// cancelled; completed ones may not.
func (s *SignatureService) Cancel(ctx context.Context, id uuid.UUID, principal model.Principal) error {
	request, err := s.signatures.GetRequest(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrNotFound
		}
		return err
	}
	status := request.StatusAt(s.now())
	if status == model.SignatureRequestCompleted {
		return fmt.Errorf("%w: completed requests cannot be cancelled", ErrInvalidTransition)
	}
	if status == model.SignatureRequestCancelled {
		return nil
	}

	projectID, docLabel, err := s.resolveDocument(ctx, request.DocumentType, request.DocumentID)
	if err != nil {
		return err
	}

	if err := s.signatures.MarkRequestCancelled(ctx, id, s.now()); err != nil {
		return err
	}

	return s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   principal.Name,
		Action:      model.AuditRequestCancelled,
		Description: fmt.Sprintf("Signature request for %s cancelled", docLabel),
		Metadata: map[string]any{
			"request_id": request.ID.String(),
			"recipient":  request.RecipientEmail,
		},
	})
}

// BulkReminderResult is the aggregate outcome of a reminder batch. The batch
// is at-least-once and non-transactional: one failure never rolls back or
// aborts the rest.
type BulkReminderResult struct {
	Sent   int
	Failed int
}

func (s *SignatureService) SendBulkReminders(ctx context.Context, ids []uuid.UUID, principal model.Principal) (BulkReminderResult, error) {
	if len(ids) == 0 {
		return BulkReminderResult{}, fmt.Errorf("%w: request_ids are required", ErrInvalidInput)
	}

	var result BulkReminderResult
	for _, id := range ids {
		if err := s.SendReminder(ctx, id, principal); err != nil {
			s.log.Warn().Err(err).Str("request_id", id.String()).Msg("bulk reminder failed")
			result.Failed++
			continue
		}
		result.Sent++
	}
	return result, nil
}

func (s *SignatureService) GetRequestByToken(ctx context.Context, token string) (*model.SignatureRequest, model.SignatureRequestStatus, error) {
	request, err := s.signatures.GetRequestByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return request, request.StatusAt(s.now()), nil
}

type CompleteByTokenInput struct {
	SignerName  string
	SignerTitle string
	ImageData   []byte
}

// CompleteByToken records the external signer's signature and closes the
// request. The token is the credential; no authenticated principal exists.
func (s *SignatureService) CompleteByToken(ctx context.Context, token string, input CompleteByTokenInput) (*model.SignatureRecord, error) {
	if strings.TrimSpace(input.SignerName) == "" {
		return nil, fmt.Errorf("%w: signer name is required", ErrInvalidInput)
	}

	request, status, err := s.GetRequestByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	switch status {
	case model.SignatureRequestExpired:
		return nil, ErrExpiredRequest
	case model.SignatureRequestCancelled:
		return nil, ErrNotFound
	case model.SignatureRequestCompleted:
		return nil, fmt.Errorf("%w: request already completed", ErrInvalidTransition)
	}

	projectID, docLabel, err := s.resolveDocument(ctx, request.DocumentType, request.DocumentID)
	if err != nil {
		return nil, err
	}

	record, err := s.signatures.UpsertRecord(ctx, model.SignatureRecord{
		DocumentType: request.DocumentType,
		DocumentID:   request.DocumentID,
		Type:         request.Type,
		SignerName:   strings.TrimSpace(input.SignerName),
		SignerTitle:  strings.TrimSpace(input.SignerTitle),
		ImageData:    input.ImageData,
	})
	if err != nil {
		return nil, err
	}

	if err := s.signatures.MarkRequestCompleted(ctx, request.ID, s.now()); err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, model.AuditLogEntry{
		ProjectID:   projectID,
		ActorName:   record.SignerName,
		Action:      model.AuditRequestCompleted,
		Description: fmt.Sprintf("%s signed %s via signing link", record.SignerName, docLabel),
		Metadata: map[string]any{
			"request_id":     request.ID.String(),
			"document_type":  string(request.DocumentType),
			"document_id":    request.DocumentID.String(),
			"signature_type": string(request.Type),
		},
	}); err != nil {
		return nil, err
	}

	if err := s.evaluateCompleteness(ctx, request.DocumentType, request.DocumentID, projectID, docLabel); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *SignatureService) ListRequests(ctx context.Context, docType model.DocumentType, docID uuid.UUID) ([]model.SignatureRequest, error) {
	if _, _, err := s.resolveDocument(ctx, docType, docID); err != nil {
		return nil, err
	}
	return s.signatures.ListRequests(ctx, docType, docID)
}

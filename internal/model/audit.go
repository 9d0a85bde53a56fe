package model

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditPayAppCreated      AuditAction = "pay_app_created"
	AuditPayAppRecalculated AuditAction = "pay_app_recalculated"
	AuditPayAppSubmitted    AuditAction = "pay_app_submitted"
	AuditPayAppApproved     AuditAction = "pay_app_approved"
	AuditPayAppRejected     AuditAction = "pay_app_rejected"
	AuditPayAppPaid         AuditAction = "pay_app_paid"
	AuditSignatureSaved     AuditAction = "signature_saved"
	AuditSignatureDeleted   AuditAction = "signature_deleted"
	AuditRequestCreated     AuditAction = "request_created"
	AuditRequestResent      AuditAction = "request_resent"
	AuditReminderSent       AuditAction = "reminder_sent"
	AuditRequestCancelled   AuditAction = "request_cancelled"
	AuditRequestCompleted   AuditAction = "request_completed"
	AuditFullySigned        AuditAction = "fully_signed"
	AuditReleaseAdded       AuditAction = "release_added"
	AuditReleaseDeleted     AuditAction = "release_deleted"
)

// AuditLogEntry is append-only; there is no update or delete path.
type AuditLogEntry struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	ActorName   string
	Action      AuditAction
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}

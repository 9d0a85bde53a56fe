package model

import (
	"time"

	"github.com/google/uuid"
)

type SignatureType string

const (
	SignatureTypeContractor SignatureType = "CONTRACTOR"
	SignatureTypeArchitect  SignatureType = "ARCHITECT"
	SignatureTypeOwner      SignatureType = "OWNER"
)

type DocumentType string

const (
	DocumentTypePayApplication DocumentType = "PAY_APPLICATION"
	DocumentTypeChangeOrder    DocumentType = "CHANGE_ORDER"
)

// RequiredSignatures lists the signature types a document needs before it
// counts as fully signed.
func RequiredSignatures(docType DocumentType) []SignatureType {
	switch docType {
	case DocumentTypeChangeOrder:
		return []SignatureType{SignatureTypeContractor, SignatureTypeArchitect, SignatureTypeOwner}
	default:
		return []SignatureType{SignatureTypeContractor, SignatureTypeArchitect}
	}
}

// SignatureRecord is one captured signature. At most one active record per
// (document, type).
type SignatureRecord struct {
	ID           uuid.UUID
	DocumentType DocumentType
	DocumentID   uuid.UUID
	Type         SignatureType
	SignerName   string
	SignerTitle  string
	ImageData    []byte
	SignedAt     time.Time
}

type SignatureRequestStatus string

const (
	SignatureRequestPending   SignatureRequestStatus = "PENDING"
	SignatureRequestCompleted SignatureRequestStatus = "COMPLETED"
	SignatureRequestCancelled SignatureRequestStatus = "CANCELLED"
	SignatureRequestExpired   SignatureRequestStatus = "EXPIRED"
)

// SignatureRequest is an external, token-credentialed invitation to sign.
// Status is never stored; it is derived from the completion and cancellation
// timestamps against the wall clock so it cannot desync from expiry.
type SignatureRequest struct {
	ID             uuid.UUID
	Token          string
	DocumentType   DocumentType
	DocumentID     uuid.UUID
	Type           SignatureType
	RecipientEmail string
	RecipientName  string
	ExpiresAt      time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CreatedAt      time.Time
}

func (r SignatureRequest) StatusAt(now time.Time) SignatureRequestStatus {
	switch {
	case r.CompletedAt != nil:
		return SignatureRequestCompleted
	case r.CancelledAt != nil:
		return SignatureRequestCancelled
	case now.After(r.ExpiresAt):
		return SignatureRequestExpired
	default:
		return SignatureRequestPending
	}
}

package http

import (
	"time"

	"github.com/crewtrack/billing-service/internal/model"
)

type budgetItemResponse struct {
	ID                    string `json:"id"`
	ProjectID             string `json:"project_id"`
	Description           string `json:"description"`
	ScheduledValue        string `json:"scheduled_value"`
	WorkCompletedPrevious string `json:"work_completed_previous"`
	WorkCompletedCurrent  string `json:"work_completed_current"`
	MaterialsStored       string `json:"materials_stored"`
	RetainagePercent      string `json:"retainage_percent"`
	SortOrder             int    `json:"sort_order"`
}

func toBudgetItemResponse(item model.BudgetItem) budgetItemResponse {
	return budgetItemResponse{
		ID:                    item.ID.String(),
		ProjectID:             item.ProjectID.String(),
		Description:           item.Description,
		ScheduledValue:        item.ScheduledValue.StringFixed(2),
		WorkCompletedPrevious: item.WorkCompletedPrevious.StringFixed(2),
		WorkCompletedCurrent:  item.WorkCompletedCurrent.StringFixed(2),
		MaterialsStored:       item.MaterialsStored.StringFixed(2),
		RetainagePercent:      item.RetainagePercent.StringFixed(2),
		SortOrder:             item.SortOrder,
	}
}

type changeOrderResponse struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Number      int        `json:"number"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

func toChangeOrderResponse(order model.ChangeOrder) changeOrderResponse {
	return changeOrderResponse{
		ID:          order.ID.String(),
		ProjectID:   order.ProjectID.String(),
		Number:      order.Number,
		Description: order.Description,
		Amount:      order.Amount.StringFixed(2),
		Status:      string(order.Status),
		ApprovedAt:  order.ApprovedAt,
	}
}

type snapshotResponse struct {
	OriginalContract         string `json:"original_contract"`
	ChangeOrdersTotal        string `json:"change_orders_total"`
	ContractToDate           string `json:"contract_to_date"`
	TotalCompleted           string `json:"total_completed"`
	RetainageAmount          string `json:"retainage_amount"`
	TotalEarnedLessRetainage string `json:"total_earned_less_retainage"`
	LessPreviousCertificates string `json:"less_previous_certificates"`
	CurrentPaymentDue        string `json:"current_payment_due"`
}

type payAppResponse struct {
	ID                string           `json:"id"`
	ProjectID         string           `json:"project_id"`
	ApplicationNumber int              `json:"application_number"`
	PeriodFrom        string           `json:"period_from"`
	PeriodTo          string           `json:"period_to"`
	Notes             string           `json:"notes,omitempty"`
	Status            string           `json:"status"`
	Snapshot          snapshotResponse `json:"snapshot"`
	SubmittedAt       *time.Time       `json:"submitted_at,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	RejectedAt        *time.Time       `json:"rejected_at,omitempty"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
}

func toPayAppResponse(app model.PayApplication) payAppResponse {
	snap := app.Snapshot
	return payAppResponse{
		ID:                app.ID.String(),
		ProjectID:         app.ProjectID.String(),
		ApplicationNumber: app.ApplicationNumber,
		PeriodFrom:        app.PeriodFrom.Format("2006-01-02"),
		PeriodTo:          app.PeriodTo.Format("2006-01-02"),
		Notes:             app.Notes,
		Status:            string(app.Status),
		Snapshot: snapshotResponse{
			OriginalContract:         snap.OriginalContract.StringFixed(2),
			ChangeOrdersTotal:        snap.ChangeOrdersTotal.StringFixed(2),
			ContractToDate:           snap.ContractToDate.StringFixed(2),
			TotalCompleted:           snap.TotalCompleted.StringFixed(2),
			RetainageAmount:          snap.RetainageAmount.StringFixed(2),
			TotalEarnedLessRetainage: snap.TotalEarnedLessRetainage.StringFixed(2),
			LessPreviousCertificates: snap.LessPreviousCertificates.StringFixed(2),
			CurrentPaymentDue:        snap.CurrentPaymentDue.StringFixed(2),
		},
		SubmittedAt: app.SubmittedAt,
		ApprovedAt:  app.ApprovedAt,
		RejectedAt:  app.RejectedAt,
		PaidAt:      app.PaidAt,
	}
}

type releaseResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	ReleaseDate string `json:"release_date"`
	Description string `json:"description,omitempty"`
}

type retainageSummaryResponse struct {
	TotalRetainage string            `json:"total_retainage"`
	TotalReleased  string            `json:"total_released"`
	Remaining      string            `json:"remaining"`
	Warning        string            `json:"warning,omitempty"`
	Releases       []releaseResponse `json:"releases"`
}

func toRetainageSummaryResponse(summary model.RetainageSummary) retainageSummaryResponse {
	releases := make([]releaseResponse, 0, len(summary.Releases))
	for _, release := range summary.Releases {
		releases = append(releases, releaseResponse{
			ID:          release.ID.String(),
			Amount:      release.Amount.StringFixed(2),
			ReleaseDate: release.ReleaseDate.Format("2006-01-02"),
			Description: release.Description,
		})
	}
	resp := retainageSummaryResponse{
		TotalRetainage: summary.TotalRetainage.StringFixed(2),
		TotalReleased:  summary.TotalReleased.StringFixed(2),
		Remaining:      summary.Remaining.StringFixed(2),
		Releases:       releases,
	}
	if summary.OverReleased {
		resp.Warning = "released retainage exceeds total withheld"
	}
	return resp
}

type signatureResponse struct {
	ID            string    `json:"id"`
	DocumentType  string    `json:"document_type"`
	DocumentID    string    `json:"document_id"`
	SignatureType string    `json:"signature_type"`
	SignerName    string    `json:"signer_name"`
	SignerTitle   string    `json:"signer_title,omitempty"`
	SignedAt      time.Time `json:"signed_at"`
}

func toSignatureResponse(record model.SignatureRecord) signatureResponse {
	return signatureResponse{
		ID:            record.ID.String(),
		DocumentType:  string(record.DocumentType),
		DocumentID:    record.DocumentID.String(),
		SignatureType: string(record.Type),
		SignerName:    record.SignerName,
		SignerTitle:   record.SignerTitle,
		SignedAt:      record.SignedAt,
	}
}

type signatureRequestResponse struct {
	ID             string    `json:"id"`
	DocumentType   string    `json:"document_type"`
	DocumentID     string    `json:"document_id"`
	SignatureType  string    `json:"signature_type"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	SigningURL     string    `json:"signing_url,omitempty"`
}

func toSignatureRequestResponse(request model.SignatureRequest, status model.SignatureRequestStatus, signingURL string) signatureRequestResponse {
	return signatureRequestResponse{
		ID:             request.ID.String(),
		DocumentType:   string(request.DocumentType),
		DocumentID:     request.DocumentID.String(),
		SignatureType:  string(request.Type),
		RecipientEmail: request.RecipientEmail,
		RecipientName:  request.RecipientName,
		Status:         string(status),
		ExpiresAt:      request.ExpiresAt,
		SigningURL:     signingURL,
	}
}

type auditEntryResponse struct {
	ID          string         `json:"id"`
	ActorName   string         `json:"actor_name,omitempty"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toAuditEntryResponse(entry model.AuditLogEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:          entry.ID.String(),
		ActorName:   entry.ActorName,
		Action:      string(entry.Action),
		Description: entry.Description,
		Metadata:    entry.Metadata,
		CreatedAt:   entry.CreatedAt,
	}
}

package http

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crewtrack/billing-service/internal/model"
	"github.com/crewtrack/billing-service/internal/service"
)

type saveSignatureRequest struct {
	SignatureType string `json:"signature_type" binding:"required"`
	SignerName    string `json:"signer_name"`
	SignerTitle   string `json:"signer_title"`
	ImageData     string `json:"image_data"`
}

func parseSignatureType(raw string) (model.SignatureType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CONTRACTOR":
		return model.SignatureTypeContractor, true
	case "ARCHITECT":
		return model.SignatureTypeArchitect, true
	case "OWNER":
		return model.SignatureTypeOwner, true
	default:
		return "", false
	}
}

func decodeImage(raw string) []byte {
	if raw == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return []byte(raw)
	}
	return data
}

func (h *Handler) saveSignature(c *gin.Context, docType model.DocumentType) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	docID, ok := parseID(c)
	if !ok {
		return
	}

	var req saveSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sigType, ok := parseSignatureType(req.SignatureType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature_type"})
		return
	}

	record, err := h.signatures.SaveSignature(c.Request.Context(), docType, docID, service.SaveSignatureInput{
		Type:        sigType,
		SignerName:  req.SignerName,
		SignerTitle: req.SignerTitle,
		ImageData:   decodeImage(req.ImageData),
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSignatureResponse(*record))
}

func (h *Handler) listSignatures(c *gin.Context, docType model.DocumentType) {
	docID, ok := parseID(c)
	if !ok {
		return
	}
	records, err := h.signatures.ListSignatures(c.Request.Context(), docType, docID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	complete, err := h.signatures.IsComplete(c.Request.Context(), docType, docID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := make([]signatureResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, toSignatureResponse(record))
	}
	c.JSON(http.StatusOK, gin.H{"signatures": resp, "complete": complete})
}

func (h *Handler) savePayAppSignature(c *gin.Context) {
	h.saveSignature(c, model.DocumentTypePayApplication)
}

func (h *Handler) listPayAppSignatures(c *gin.Context) {
	h.listSignatures(c, model.DocumentTypePayApplication)
}

func (h *Handler) saveChangeOrderSignature(c *gin.Context) {
	h.saveSignature(c, model.DocumentTypeChangeOrder)
}

func (h *Handler) listChangeOrderSignatures(c *gin.Context) {
	h.listSignatures(c, model.DocumentTypeChangeOrder)
}

func (h *Handler) deleteSignature(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	recordID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.signatures.DeleteSignature(c.Request.Context(), recordID, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createSignatureRequestRequest struct {
	DocumentType   string `json:"document_type" binding:"required"`
	DocumentID     string `json:"document_id" binding:"required"`
	SignatureType  string `json:"signature_type" binding:"required"`
	RecipientEmail string `json:"recipient_email" binding:"required"`
	RecipientName  string `json:"recipient_name" binding:"required"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

func (h *Handler) createSignatureRequest(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req createSignatureRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var docType model.DocumentType
	switch strings.ToUpper(strings.TrimSpace(req.DocumentType)) {
	case "PAY_APPLICATION":
		docType = model.DocumentTypePayApplication
	case "CHANGE_ORDER":
		docType = model.DocumentTypeChangeOrder
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_type"})
		return
	}

	docID, err := uuid.Parse(strings.TrimSpace(req.DocumentID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_id"})
		return
	}
	sigType, ok := parseSignatureType(req.SignatureType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature_type"})
		return
	}

	result, err := h.signatures.RequestSignature(c.Request.Context(), service.RequestSignatureInput{
		DocumentType:   docType,
		DocumentID:     docID,
		Type:           sigType,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		ExpiresIn:      time.Duration(req.ExpiresInHours) * time.Hour,
		Principal:      principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSignatureRequestResponse(result.Request, model.SignatureRequestPending, result.SigningURL))
}

func (h *Handler) listSignatureRequests(c *gin.Context, docType model.DocumentType) {
	docID, ok := parseID(c)
	if !ok {
		return
	}
	requests, err := h.signatures.ListRequests(c.Request.Context(), docType, docID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	now := time.Now().UTC()
	resp := make([]signatureRequestResponse, 0, len(requests))
	for _, request := range requests {
		resp = append(resp, toSignatureRequestResponse(request, request.StatusAt(now), ""))
	}
	c.JSON(http.StatusOK, gin.H{"requests": resp})
}

func (h *Handler) listPayAppSignatureRequests(c *gin.Context) {
	h.listSignatureRequests(c, model.DocumentTypePayApplication)
}

func (h *Handler) listChangeOrderSignatureRequests(c *gin.Context) {
	h.listSignatureRequests(c, model.DocumentTypeChangeOrder)
}

func (h *Handler) resendSignatureRequest(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	requestID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.signatures.Resend(c.Request.Context(), requestID, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resent"})
}

func (h *Handler) remindSignatureRequest(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	requestID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.signatures.SendReminder(c.Request.Context(), requestID, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reminded"})
}

func (h *Handler) cancelSignatureRequest(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	requestID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.signatures.Cancel(c.Request.Context(), requestID, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

type bulkRemindRequest struct {
	RequestIDs []string `json:"request_ids" binding:"required"`
}

func (h *Handler) bulkRemindSignatureRequests(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req bulkRemindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids := make([]uuid.UUID, 0, len(req.RequestIDs))
	for _, raw := range req.RequestIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id: " + raw})
			return
		}
		ids = append(ids, id)
	}

	result, err := h.signatures.SendBulkReminders(c.Request.Context(), ids, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": result.Sent, "failed": result.Failed})
}

func (h *Handler) getSigningRequest(c *gin.Context) {
	token := c.Param("token")
	request, status, err := h.signatures.GetRequestByToken(c.Request.Context(), token)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSignatureRequestResponse(*request, status, ""))
}

type completeSigningRequestBody struct {
	SignerName  string `json:"signer_name" binding:"required"`
	SignerTitle string `json:"signer_title"`
	ImageData   string `json:"image_data"`
}

func (h *Handler) completeSigningRequest(c *gin.Context) {
	token := c.Param("token")

	var req completeSigningRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.signatures.CompleteByToken(c.Request.Context(), token, service.CompleteByTokenInput{
		SignerName:  req.SignerName,
		SignerTitle: req.SignerTitle,
		ImageData:   decodeImage(req.ImageData),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSignatureResponse(*record))
}

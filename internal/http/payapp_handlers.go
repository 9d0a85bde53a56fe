package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewtrack/billing-service/internal/model"
	"github.com/crewtrack/billing-service/internal/service"
)

type createPayAppRequest struct {
	PeriodFrom string `json:"period_from" binding:"required"`
	PeriodTo   string `json:"period_to" binding:"required"`
	Notes      string `json:"notes"`
}

func (h *Handler) listPayApplications(c *gin.Context) {
	projectID, ok := parseID(c)
	if !ok {
		return
	}
	apps, err := h.payApps.List(c.Request.Context(), projectID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	resp := make([]payAppResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, toPayAppResponse(app))
	}
	c.JSON(http.StatusOK, gin.H{"pay_applications": resp})
}

func (h *Handler) createPayApplication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c)
	if !ok {
		return
	}

	var req createPayAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	periodFrom, err := parseDate(req.PeriodFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_from"})
		return
	}
	periodTo, err := parseDate(req.PeriodTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_to"})
		return
	}

	app, err := h.payApps.Create(c.Request.Context(), service.CreatePayAppInput{
		ProjectID:  projectID,
		PeriodFrom: periodFrom,
		PeriodTo:   periodTo,
		Notes:      req.Notes,
		Principal:  principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPayAppResponse(*app))
}

func (h *Handler) getPayApplication(c *gin.Context) {
	appID, ok := parseID(c)
	if !ok {
		return
	}
	app, err := h.payApps.Get(c.Request.Context(), appID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPayAppResponse(*app))
}

type updatePayAppRequest struct {
	PeriodFrom  string `json:"period_from" binding:"required"`
	PeriodTo    string `json:"period_to" binding:"required"`
	Notes       string `json:"notes"`
	Recalculate bool   `json:"recalculate"`
}

func (h *Handler) updatePayApplication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	appID, ok := parseID(c)
	if !ok {
		return
	}

	var req updatePayAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	periodFrom, err := parseDate(req.PeriodFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_from"})
		return
	}
	periodTo, err := parseDate(req.PeriodTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period_to"})
		return
	}

	app, err := h.payApps.UpdateMetadata(c.Request.Context(), appID, service.UpdateMetadataInput{
		PeriodFrom:  periodFrom,
		PeriodTo:    periodTo,
		Notes:       req.Notes,
		Recalculate: req.Recalculate,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPayAppResponse(*app))
}

func (h *Handler) recalculatePayApplication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	appID, ok := parseID(c)
	if !ok {
		return
	}
	app, err := h.payApps.Recalculate(c.Request.Context(), appID, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPayAppResponse(*app))
}

type transitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) transitionPayApplication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	appID, ok := parseID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var target model.PayAppStatus
	switch strings.ToUpper(strings.TrimSpace(req.Status)) {
	case "SUBMITTED":
		target = model.PayAppStatusSubmitted
	case "APPROVED":
		target = model.PayAppStatusApproved
	case "REJECTED":
		target = model.PayAppStatusRejected
	case "PAID":
		target = model.PayAppStatusPaid
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	app, err := h.payApps.Transition(c.Request.Context(), appID, target, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPayAppResponse(*app))
}

type exportPDFRequest struct {
	Format string `json:"format"`
}

func (h *Handler) exportPayApplicationPDF(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	appID, ok := parseID(c)
	if !ok {
		return
	}

	var req exportPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.payApps.Document(c.Request.Context(), appID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	var content []byte
	switch format {
	case "g702":
		content, err = h.pdf.GenerateG702(*doc)
	case "g703":
		content, err = h.pdf.GenerateG703(*doc)
	case "", "combined":
		format = "combined"
		content, err = h.pdf.GenerateCombined(*doc)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format"})
		return
	}
	if err != nil {
		h.handleError(c, err)
		return
	}

	fileName := fmt.Sprintf("pay-app-%d-%s.pdf", doc.Application.ApplicationNumber, format)
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/pdf", content)
}

func (h *Handler) exportPayApplicationXLSX(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	appID, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := h.payApps.Document(c.Request.Context(), appID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	content, err := h.excel.Generate(*doc)
	if err != nil {
		h.handleError(c, err)
		return
	}

	fileName := fmt.Sprintf("pay-app-%d-continuation.xlsx", doc.Application.ApplicationNumber)
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

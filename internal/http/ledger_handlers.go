package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewtrack/billing-service/internal/model"
	"github.com/crewtrack/billing-service/internal/service"
)

type budgetItemRequest struct {
	Description           string `json:"description" binding:"required"`
	ScheduledValue        string `json:"scheduled_value" binding:"required"`
	WorkCompletedPrevious string `json:"work_completed_previous"`
	WorkCompletedCurrent  string `json:"work_completed_current"`
	MaterialsStored       string `json:"materials_stored"`
	RetainagePercent      string `json:"retainage_percent"`
	SortOrder             int    `json:"sort_order"`
}

func (r budgetItemRequest) toInput() (service.BudgetItemInput, error) {
	scheduled, err := parseAmount(r.ScheduledValue)
	if err != nil {
		return service.BudgetItemInput{}, err
	}
	previous, err := parseAmount(r.WorkCompletedPrevious)
	if err != nil {
		return service.BudgetItemInput{}, err
	}
	current, err := parseAmount(r.WorkCompletedCurrent)
	if err != nil {
		return service.BudgetItemInput{}, err
	}
	materials, err := parseAmount(r.MaterialsStored)
	if err != nil {
		return service.BudgetItemInput{}, err
	}
	retainage, err := parseAmount(r.RetainagePercent)
	if err != nil {
		return service.BudgetItemInput{}, err
	}
	return service.BudgetItemInput{
		Description:           r.Description,
		ScheduledValue:        scheduled,
		WorkCompletedPrevious: previous,
		WorkCompletedCurrent:  current,
		MaterialsStored:       materials,
		RetainagePercent:      retainage,
		SortOrder:             r.SortOrder,
	}, nil
}

func (h *Handler) listBudgetItems(c *gin.Context) {
	projectID, ok := parseID(c)
	if !ok {
		return
	}
	items, err := h.ledger.ListBudgetItems(c.Request.Context(), projectID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	resp := make([]budgetItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toBudgetItemResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h *Handler) createBudgetItem(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	projectID, ok := parseID(c)
	if !ok {
		return
	}

	var req budgetItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	item, err := h.ledger.CreateBudgetItem(c.Request.Context(), projectID, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBudgetItemResponse(*item))
}

func (h *Handler) updateBudgetItem(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	itemID, ok := parseID(c)
	if !ok {
		return
	}

	var req budgetItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	item, err := h.ledger.UpdateBudgetItem(c.Request.Context(), itemID, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBudgetItemResponse(*item))
}

func (h *Handler) deleteBudgetItem(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	itemID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteBudgetItem(c.Request.Context(), itemID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type changeOrderRequest struct {
	Description string `json:"description" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
}

func (h *Handler) listChangeOrders(c *gin.Context) {
	projectID, ok := parseID(c)
	if !ok {
		return
	}
	orders, err := h.ledger.ListChangeOrders(c.Request.Context(), projectID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	resp := make([]changeOrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toChangeOrderResponse(order))
	}
	c.JSON(http.StatusOK, gin.H{"change_orders": resp})
}

func (h *Handler) createChangeOrder(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	projectID, ok := parseID(c)
	if !ok {
		return
	}

	var req changeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	order, err := h.ledger.CreateChangeOrder(c.Request.Context(), projectID, service.ChangeOrderInput{
		Description: req.Description,
		Amount:      amount,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toChangeOrderResponse(*order))
}

type changeOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) setChangeOrderStatus(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	orderID, ok := parseID(c)
	if !ok {
		return
	}

	var req changeOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var status model.ChangeOrderStatus
	switch strings.ToUpper(strings.TrimSpace(req.Status)) {
	case "APPROVED":
		status = model.ChangeOrderStatusApproved
	case "REJECTED":
		status = model.ChangeOrderStatusRejected
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	order, err := h.ledger.SetChangeOrderStatus(c.Request.Context(), orderID, status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toChangeOrderResponse(*order))
}

type retainageReleaseRequest struct {
	Amount      string `json:"amount" binding:"required"`
	ReleaseDate string `json:"release_date" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) getRetainageSummary(c *gin.Context) {
	projectID, ok := parseID(c)
	if !ok {
		return
	}
	summary, err := h.retainage.Summary(c.Request.Context(), projectID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRetainageSummaryResponse(*summary))
}

func (h *Handler) addRetainageRelease(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c)
	if !ok {
		return
	}

	var req retainageReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	releaseDate, err := parseDate(req.ReleaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid release_date"})
		return
	}

	summary, err := h.retainage.AddRelease(c.Request.Context(), projectID, service.AddReleaseInput{
		Amount:      amount,
		ReleaseDate: releaseDate,
		Description: req.Description,
		Principal:   principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRetainageSummaryResponse(*summary))
}

func (h *Handler) deleteRetainageRelease(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	releaseID, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.retainage.DeleteRelease(c.Request.Context(), releaseID, principal); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listAuditLog(c *gin.Context) {
	projectID, ok := parseID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.audit.List(c.Request.Context(), projectID, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	resp := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, toAuditEntryResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": resp})
}

package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/crewtrack/billing-service/internal/excel"
	"github.com/crewtrack/billing-service/internal/http/middleware"
	"github.com/crewtrack/billing-service/internal/model"
	"github.com/crewtrack/billing-service/internal/pdf"
	"github.com/crewtrack/billing-service/internal/service"
)

type Handler struct {
	ledger     *service.LedgerService
	payApps    *service.PayAppService
	retainage  *service.RetainageService
	signatures *service.SignatureService
	audit      *service.AuditService
	pdf        *pdf.Generator
	excel      *excel.Generator
	log        zerolog.Logger
}

func NewHandler(
	ledger *service.LedgerService,
	payApps *service.PayAppService,
	retainage *service.RetainageService,
	signatures *service.SignatureService,
	audit *service.AuditService,
	pdfGen *pdf.Generator,
	excelGen *excel.Generator,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ledger:     ledger,
		payApps:    payApps,
		retainage:  retainage,
		signatures: signatures,
		audit:      audit,
		pdf:        pdfGen,
		excel:      excelGen,
		log:        log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	// External signers authenticate with the request token, not a JWT.
	router.GET("/sign/:token", h.getSigningRequest)
	router.POST("/sign/:token", h.completeSigningRequest)

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/projects/:id/budget-items", h.listBudgetItems)
	protected.POST("/projects/:id/budget-items", h.createBudgetItem)
	protected.PUT("/budget-items/:id", h.updateBudgetItem)
	protected.DELETE("/budget-items/:id", h.deleteBudgetItem)

	protected.GET("/projects/:id/change-orders", h.listChangeOrders)
	protected.POST("/projects/:id/change-orders", h.createChangeOrder)
	protected.POST("/change-orders/:id/status", h.setChangeOrderStatus)

	protected.GET("/projects/:id/pay-applications", h.listPayApplications)
	protected.POST("/projects/:id/pay-applications", h.createPayApplication)
	protected.GET("/pay-applications/:id", h.getPayApplication)
	protected.PUT("/pay-applications/:id", h.updatePayApplication)
	protected.POST("/pay-applications/:id/recalculate", h.recalculatePayApplication)
	protected.POST("/pay-applications/:id/transition", h.transitionPayApplication)
	protected.POST("/pay-applications/:id/export/pdf", h.exportPayApplicationPDF)
	protected.POST("/pay-applications/:id/export/xlsx", h.exportPayApplicationXLSX)

	protected.GET("/projects/:id/retainage-releases", h.getRetainageSummary)
	protected.POST("/projects/:id/retainage-releases", h.addRetainageRelease)
	protected.DELETE("/retainage-releases/:id", h.deleteRetainageRelease)

	protected.GET("/pay-applications/:id/signatures", h.listPayAppSignatures)
	protected.POST("/pay-applications/:id/signatures", h.savePayAppSignature)
	protected.GET("/change-orders/:id/signatures", h.listChangeOrderSignatures)
	protected.POST("/change-orders/:id/signatures", h.saveChangeOrderSignature)
	protected.DELETE("/signatures/:id", h.deleteSignature)

	protected.GET("/pay-applications/:id/signature-requests", h.listPayAppSignatureRequests)
	protected.GET("/change-orders/:id/signature-requests", h.listChangeOrderSignatureRequests)
	protected.POST("/signature-requests", h.createSignatureRequest)
	protected.POST("/signature-requests/bulk-remind", h.bulkRemindSignatureRequests)
	protected.POST("/signature-requests/:id/resend", h.resendSignatureRequest)
	protected.POST("/signature-requests/:id/remind", h.remindSignatureRequest)
	protected.POST("/signature-requests/:id/cancel", h.cancelSignatureRequest)

	protected.GET("/projects/:id/audit-log", h.listAuditLog)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrExpiredRequest):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func principalOrAbort(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return model.Principal{}, false
	}
	return principal, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, service.ErrInvalidInput
	}
	return value, nil
}

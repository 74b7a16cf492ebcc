package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/services"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/views"
	"go.uber.org/zap"
)

type AuditHandler struct {
	logger  *zap.Logger
	service services.AuditService
}

func NewAuditHandler(logger *zap.Logger, svc services.AuditService) *AuditHandler {
	return &AuditHandler{logger: logger, service: svc}
}

func (h *AuditHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit-records", h.ListAuditRecords)
}

func (h *AuditHandler) ListAuditRecords(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}

	var query views.AuditQuery
	if err = c.ShouldBindQuery(&query); err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid pagination parameters", err))
		return
	}

	records, err := h.service.ListAuditRecords(c.Request.Context(), traceID, query.Limit, query.Offset)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.APIResponse{Data: views.AuditPage{
		Records: records,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}})
}

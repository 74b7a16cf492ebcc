package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/services"
	"go.uber.org/zap"
)

type PaymentReturnHandler struct {
	logger  *zap.Logger
	service services.ReconciliationService
}

func NewPaymentReturnHandler(logger *zap.Logger, svc services.ReconciliationService) *PaymentReturnHandler {
	return &PaymentReturnHandler{logger: logger, service: svc}
}

func (h *PaymentReturnHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET(services.ReturnPath, h.PaymentReturn)
}

// PaymentReturn reconciles the order named in the callback and always redirects the buyer
// to the confirmation page. Failures are logged by the reconciliation service.
func (h *PaymentReturnHandler) PaymentReturn(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	result, _ := h.service.HandleReturn(c.Request.Context(), traceID, services.ReturnCallback{
		OrderReference: c.Query(pkg.ParamOrderNsu),
		Signature:      c.Query(pkg.ParamSignature),
	})
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, result.RedirectURL)
}

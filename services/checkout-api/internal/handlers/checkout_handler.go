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

type CheckoutHandler struct {
	logger  *zap.Logger
	service services.CheckoutService
}

func NewCheckoutHandler(logger *zap.Logger, svc services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{logger: logger, service: svc}
}

func (h *CheckoutHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/orders/:reference/checkout", h.StartCheckout)
	r.GET("/payment-method", h.GetPaymentMethod)
}

func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	reference := c.Param("reference")
	if utils.IsEmpty(reference) {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "order reference is required", nil))
		return
	}

	link, err := h.service.StartCheckout(c.Request.Context(), traceID, reference)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.APIResponse{Data: views.CheckoutResponse{
		CheckoutURL: link.CheckoutURL,
		QRCodeURL:   link.QRCodeURL,
	}})
}

func (h *CheckoutHandler) GetPaymentMethod(c *gin.Context) {
	settings := h.service.PaymentMethod()
	c.JSON(http.StatusOK, views.APIResponse{Data: views.PaymentMethodResponse{
		Title:       settings.Title,
		Description: settings.Description,
		Enabled:     settings.Enabled,
	}})
}

func writeError(c *gin.Context, logger *zap.Logger, traceID string, err error) {
	resp := pkg.ToErrorResponse(logger, traceID, err)
	c.JSON(resp.Status, resp)
}

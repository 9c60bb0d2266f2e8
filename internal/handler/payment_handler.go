package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-event-ticketing/internal/gateway"
	"go-event-ticketing/internal/service"
	apperrors "go-event-ticketing/pkg/app_errors"
	"go-event-ticketing/pkg/logger"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments service.PaymentService
}

func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("payments/callback", h.Callback)
}

// Callback 接收閘道 webhook。除了簽章錯誤之外一律回 200 ack，
// 否則閘道會無止境地重送；內部被拒絕的轉換只記 log。
func (h *PaymentHandler) Callback(c *gin.Context) {
	var payload gateway.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification payload"})
		return
	}

	if err := h.payments.HandleCallback(c, payload); err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
			return
		}
		// Transient internal failure: let the gateway redeliver, the
		// handler is idempotent.
		logger.WithComponent("handler").Error("callback processing failed",
			zap.String("order_id", payload.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Temporary failure"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/services"
)

// PaymentHandler handles the payment gateway webhook
type PaymentHandler struct {
	orderService *services.OrderService
	logger       *logrus.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(orderService *services.OrderService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// Notification handles POST /api/v1/payments/notification. The gateway
// retries on any non-200 response, so everything except a malformed payload
// is acknowledged, including notifications for unknown orders.
func (h *PaymentHandler) Notification(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "failed to read body"})
		return
	}

	var notification services.PaymentNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "malformed notification payload"})
		return
	}

	if notification.OrderID == "" || notification.TransactionStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "order_id and transaction_status are required"})
		return
	}

	outcome, err := h.orderService.HandlePaymentNotification(&notification, body)
	if err != nil {
		// storage failure; let the gateway retry
		h.logger.WithError(err).Error("Failed to process payment notification")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to process notification"})
		return
	}

	respondSuccess(c, http.StatusOK, "notification processed", gin.H{"outcome": outcome})
}

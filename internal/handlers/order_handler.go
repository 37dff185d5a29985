package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/middleware"
	"github.com/cuikww/Obis-project/internal/models"
	"github.com/cuikww/Obis-project/internal/services"
)

// OrderHandler handles customer and operator order endpoints
type OrderHandler struct {
	orderService *services.OrderService
	userRepo     *database.UserRepository
	logger       *logrus.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *services.OrderService, userRepo *database.UserRepository, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		userRepo:     userRepo,
		logger:       logger,
	}
}

// CreateOnline handles POST /api/v1/orders
func (h *OrderHandler) CreateOnline(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return
	}

	var req models.CreateOnlineOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	customer, err := h.userRepo.GetByID(userCtx.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "account no longer exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load account"})
		return
	}

	order, err := h.orderService.CreateOnlineOrder(customer, &req)
	if err != nil {
		// the order exists but payment could not be initiated; report the
		// failure together with the created order so the client can retry
		if errors.Is(err, services.ErrGateway) && order != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"message": err.Error(),
				"data":    order,
			})
			return
		}
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "order created", order)
}

// GetMyOrders handles GET /api/v1/orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return
	}

	orders, err := h.orderService.GetCustomerOrders(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "orders retrieved", orders)
}

// GetByID handles GET /api/v1/orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return
	}

	// admins may inspect any order
	customerID := userCtx.UserID
	if userCtx.Role == models.RoleSuperAdmin || userCtx.Role == models.RoleOperator {
		customerID = ""
	}

	order, err := h.orderService.GetOrder(customerID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "order retrieved", order)
}

// Cancel handles POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return
	}

	customerID := userCtx.UserID
	if userCtx.Role == models.RoleSuperAdmin {
		customerID = ""
	}

	if err := h.orderService.CancelOrder(customerID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "order canceled", nil)
}

// CreateOffline handles POST /api/v1/offline-orders
func (h *OrderHandler) CreateOffline(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	var req models.CreateOfflineOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	order, err := h.orderService.CreateOfflineOrder(operatorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "offline order created", order)
}

// UpdateOffline handles PUT /api/v1/offline-orders/:id
func (h *OrderHandler) UpdateOffline(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	var req models.UpdateOfflineOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	order, err := h.orderService.UpdateOfflineOrder(operatorID, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "offline order updated", order)
}

// DeleteOffline handles DELETE /api/v1/offline-orders/:id
func (h *OrderHandler) DeleteOffline(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	if err := h.orderService.DeleteOfflineOrder(operatorID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "offline order deleted", nil)
}

// GetOperatorOrders handles GET /api/v1/operator/orders
func (h *OrderHandler) GetOperatorOrders(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return
	}

	var operatorID string
	if userCtx.Role == models.RoleSuperAdmin {
		operatorID = c.Query("operator_id")
		if operatorID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "operator_id query parameter is required for super admins"})
			return
		}
	} else {
		if userCtx.OperatorID == nil {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "account is not linked to an operator"})
			return
		}
		operatorID = *userCtx.OperatorID
	}

	orders, err := h.orderService.GetOperatorOrders(operatorID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "orders retrieved", orders)
}

package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/middleware"
	"github.com/cuikww/Obis-project/internal/models"
)

// BusHandler handles bus fleet endpoints for operator admins
type BusHandler struct {
	busRepo      *database.BusRepository
	operatorRepo *database.OperatorRepository
}

// NewBusHandler creates a new BusHandler
func NewBusHandler(busRepo *database.BusRepository, operatorRepo *database.OperatorRepository) *BusHandler {
	return &BusHandler{
		busRepo:      busRepo,
		operatorRepo: operatorRepo,
	}
}

// resolveOperatorID returns the operator scope of the caller. Operator
// admins are pinned to their own operator; super admins pass ?operator_id=.
func resolveOperatorID(c *gin.Context) (string, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return "", false
	}

	if userCtx.Role == models.RoleSuperAdmin {
		operatorID := c.Query("operator_id")
		if operatorID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "operator_id query parameter is required for super admins"})
			return "", false
		}
		return operatorID, true
	}

	if userCtx.OperatorID == nil {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "account is not linked to an operator"})
		return "", false
	}

	return *userCtx.OperatorID, true
}

// Create handles POST /api/v1/buses
func (h *BusHandler) Create(c *gin.Context) {
	operatorID, ok := resolveOperatorID(c)
	if !ok {
		return
	}

	var req models.CreateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if _, err := h.operatorRepo.GetByID(operatorID); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "operator not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load operator"})
		return
	}

	now := time.Now()
	bus := &models.Bus{
		ID:         uuid.New().String(),
		OperatorID: operatorID,
		Name:       req.Name,
		Capacity:   req.Capacity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.busRepo.Create(bus); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to create bus"})
		return
	}

	respondSuccess(c, http.StatusCreated, "bus created", bus)
}

// GetAll handles GET /api/v1/buses
func (h *BusHandler) GetAll(c *gin.Context) {
	operatorID, ok := resolveOperatorID(c)
	if !ok {
		return
	}

	buses, err := h.busRepo.GetByOperatorID(operatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load buses"})
		return
	}

	respondSuccess(c, http.StatusOK, "buses retrieved", buses)
}

// getOwnedBus loads a bus and verifies the caller's operator owns it
func (h *BusHandler) getOwnedBus(c *gin.Context) (*models.Bus, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return nil, false
	}

	bus, err := h.busRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "bus not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load bus"})
		return nil, false
	}

	if userCtx.Role != models.RoleSuperAdmin {
		if userCtx.OperatorID == nil || bus.OperatorID != *userCtx.OperatorID {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "bus belongs to another operator"})
			return nil, false
		}
	}

	return bus, true
}

// GetByID handles GET /api/v1/buses/:id
func (h *BusHandler) GetByID(c *gin.Context) {
	bus, ok := h.getOwnedBus(c)
	if !ok {
		return
	}

	respondSuccess(c, http.StatusOK, "bus retrieved", bus)
}

// Update handles PUT /api/v1/buses/:id
func (h *BusHandler) Update(c *gin.Context) {
	bus, ok := h.getOwnedBus(c)
	if !ok {
		return
	}

	var req models.UpdateBusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if req.Name != nil {
		bus.Name = *req.Name
	}
	if req.Capacity != nil {
		bus.Capacity = *req.Capacity
	}

	if err := h.busRepo.Update(bus); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to update bus"})
		return
	}

	respondSuccess(c, http.StatusOK, "bus updated", bus)
}

// Delete handles DELETE /api/v1/buses/:id
func (h *BusHandler) Delete(c *gin.Context) {
	bus, ok := h.getOwnedBus(c)
	if !ok {
		return
	}

	if err := h.busRepo.Delete(bus.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to delete bus"})
		return
	}

	respondSuccess(c, http.StatusOK, "bus deleted", nil)
}

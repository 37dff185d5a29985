package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/models"
)

// OperatorHandler handles operator directory endpoints
type OperatorHandler struct {
	operatorRepo *database.OperatorRepository
}

// NewOperatorHandler creates a new OperatorHandler
func NewOperatorHandler(operatorRepo *database.OperatorRepository) *OperatorHandler {
	return &OperatorHandler{operatorRepo: operatorRepo}
}

// Create handles POST /api/v1/operators
func (h *OperatorHandler) Create(c *gin.Context) {
	var req models.CreateOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	now := time.Now()
	operator := &models.Operator{
		ID:        uuid.New().String(),
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.operatorRepo.Create(operator); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to create operator"})
		return
	}

	respondSuccess(c, http.StatusCreated, "operator created", operator)
}

// GetAll handles GET /api/v1/operators
func (h *OperatorHandler) GetAll(c *gin.Context) {
	operators, err := h.operatorRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load operators"})
		return
	}

	respondSuccess(c, http.StatusOK, "operators retrieved", operators)
}

// GetByID handles GET /api/v1/operators/:id
func (h *OperatorHandler) GetByID(c *gin.Context) {
	operator, err := h.operatorRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "operator not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load operator"})
		return
	}

	respondSuccess(c, http.StatusOK, "operator retrieved", operator)
}

// Update handles PUT /api/v1/operators/:id
func (h *OperatorHandler) Update(c *gin.Context) {
	var req models.CreateOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	operator, err := h.operatorRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "operator not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load operator"})
		return
	}

	operator.Name = req.Name
	if err := h.operatorRepo.Update(operator); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to update operator"})
		return
	}

	respondSuccess(c, http.StatusOK, "operator updated", operator)
}

// Delete handles DELETE /api/v1/operators/:id
func (h *OperatorHandler) Delete(c *gin.Context) {
	if err := h.operatorRepo.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "operator not found"})
		return
	}

	respondSuccess(c, http.StatusOK, "operator deleted", nil)
}

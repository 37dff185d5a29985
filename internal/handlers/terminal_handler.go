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

// TerminalHandler handles terminal directory endpoints
type TerminalHandler struct {
	terminalRepo *database.TerminalRepository
	cityRepo     *database.CityRepository
}

// NewTerminalHandler creates a new TerminalHandler
func NewTerminalHandler(terminalRepo *database.TerminalRepository, cityRepo *database.CityRepository) *TerminalHandler {
	return &TerminalHandler{
		terminalRepo: terminalRepo,
		cityRepo:     cityRepo,
	}
}

// Create handles POST /api/v1/terminals
func (h *TerminalHandler) Create(c *gin.Context) {
	var req models.CreateTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if _, err := h.cityRepo.GetByID(req.CityID); err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "city not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load city"})
		return
	}

	now := time.Now()
	terminal := &models.Terminal{
		ID:        uuid.New().String(),
		CityID:    req.CityID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.terminalRepo.Create(terminal); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to create terminal"})
		return
	}

	respondSuccess(c, http.StatusCreated, "terminal created", terminal)
}

// GetAll handles GET /api/v1/terminals, optionally filtered by city_id
func (h *TerminalHandler) GetAll(c *gin.Context) {
	if cityID := c.Query("city_id"); cityID != "" {
		terminals, err := h.terminalRepo.GetByCityID(cityID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load terminals"})
			return
		}
		respondSuccess(c, http.StatusOK, "terminals retrieved", terminals)
		return
	}

	terminals, err := h.terminalRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load terminals"})
		return
	}

	respondSuccess(c, http.StatusOK, "terminals retrieved", terminals)
}

// GetByID handles GET /api/v1/terminals/:id
func (h *TerminalHandler) GetByID(c *gin.Context) {
	terminal, err := h.terminalRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "terminal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load terminal"})
		return
	}

	respondSuccess(c, http.StatusOK, "terminal retrieved", terminal)
}

// Update handles PUT /api/v1/terminals/:id
func (h *TerminalHandler) Update(c *gin.Context) {
	var req models.UpdateTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	terminal, err := h.terminalRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "terminal not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load terminal"})
		return
	}

	if req.Name != nil {
		terminal.Name = *req.Name
	}
	if req.CityID != nil {
		if _, err := h.cityRepo.GetByID(*req.CityID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "city not found"})
			return
		}
		terminal.CityID = *req.CityID
	}

	if err := h.terminalRepo.Update(terminal); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to update terminal"})
		return
	}

	respondSuccess(c, http.StatusOK, "terminal updated", terminal)
}

// Delete handles DELETE /api/v1/terminals/:id
func (h *TerminalHandler) Delete(c *gin.Context) {
	if err := h.terminalRepo.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "terminal not found"})
		return
	}

	respondSuccess(c, http.StatusOK, "terminal deleted", nil)
}

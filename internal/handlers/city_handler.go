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

// CityHandler handles city directory endpoints
type CityHandler struct {
	cityRepo *database.CityRepository
}

// NewCityHandler creates a new CityHandler
func NewCityHandler(cityRepo *database.CityRepository) *CityHandler {
	return &CityHandler{cityRepo: cityRepo}
}

// Create handles POST /api/v1/cities
func (h *CityHandler) Create(c *gin.Context) {
	var req models.CreateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	now := time.Now()
	city := &models.City{
		ID:        uuid.New().String(),
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.cityRepo.Create(city); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to create city"})
		return
	}

	respondSuccess(c, http.StatusCreated, "city created", city)
}

// GetAll handles GET /api/v1/cities
func (h *CityHandler) GetAll(c *gin.Context) {
	cities, err := h.cityRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load cities"})
		return
	}

	respondSuccess(c, http.StatusOK, "cities retrieved", cities)
}

// GetByID handles GET /api/v1/cities/:id
func (h *CityHandler) GetByID(c *gin.Context) {
	city, err := h.cityRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "city not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load city"})
		return
	}

	respondSuccess(c, http.StatusOK, "city retrieved", city)
}

// Update handles PUT /api/v1/cities/:id
func (h *CityHandler) Update(c *gin.Context) {
	var req models.UpdateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	city, err := h.cityRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "city not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load city"})
		return
	}

	city.Name = req.Name
	if err := h.cityRepo.Update(city); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to update city"})
		return
	}

	respondSuccess(c, http.StatusOK, "city updated", city)
}

// Delete handles DELETE /api/v1/cities/:id
func (h *CityHandler) Delete(c *gin.Context) {
	if err := h.cityRepo.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "city not found"})
		return
	}

	respondSuccess(c, http.StatusOK, "city deleted", nil)
}

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

// SeatHandler handles seat layout endpoints for operator admins
type SeatHandler struct {
	seatRepo *database.SeatRepository
	busRepo  *database.BusRepository
}

// NewSeatHandler creates a new SeatHandler
func NewSeatHandler(seatRepo *database.SeatRepository, busRepo *database.BusRepository) *SeatHandler {
	return &SeatHandler{
		seatRepo: seatRepo,
		busRepo:  busRepo,
	}
}

// ownedBus loads a bus by id and verifies the caller's operator owns it
func (h *SeatHandler) ownedBus(c *gin.Context, busID string) (*models.Bus, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return nil, false
	}

	bus, err := h.busRepo.GetByID(busID)
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

// Initialize handles POST /api/v1/seats/initialize. It replaces the bus's
// seat set with seats numbered 1 through its capacity.
func (h *SeatHandler) Initialize(c *gin.Context) {
	var req models.InitializeSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	bus, ok := h.ownedBus(c, req.BusID)
	if !ok {
		return
	}

	seats, err := h.seatRepo.InitializeForBus(bus.ID, bus.Capacity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to initialize seats"})
		return
	}

	respondSuccess(c, http.StatusCreated, "seats initialized", seats)
}

// Add handles POST /api/v1/seats
func (h *SeatHandler) Add(c *gin.Context) {
	var req models.AddSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	if _, ok := h.ownedBus(c, req.BusID); !ok {
		return
	}

	now := time.Now()
	seat := &models.Seat{
		ID:         uuid.New().String(),
		BusID:      req.BusID,
		SeatNumber: req.SeatNumber,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.seatRepo.Add(seat); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to add seat"})
		return
	}

	respondSuccess(c, http.StatusCreated, "seat added", seat)
}

// GetByBus handles GET /api/v1/buses/:id/seats
func (h *SeatHandler) GetByBus(c *gin.Context) {
	bus, ok := h.ownedBus(c, c.Param("id"))
	if !ok {
		return
	}

	seats, err := h.seatRepo.GetByBusID(bus.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load seats"})
		return
	}

	respondSuccess(c, http.StatusOK, "seats retrieved", seats)
}

// Delete handles DELETE /api/v1/seats/:id
func (h *SeatHandler) Delete(c *gin.Context) {
	seat, err := h.seatRepo.GetByID(c.Param("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "seat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load seat"})
		return
	}

	if _, ok := h.ownedBus(c, seat.BusID); !ok {
		return
	}

	if err := h.seatRepo.Delete(seat.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to delete seat"})
		return
	}

	respondSuccess(c, http.StatusOK, "seat deleted", nil)
}

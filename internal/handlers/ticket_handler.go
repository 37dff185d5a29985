package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/middleware"
	"github.com/cuikww/Obis-project/internal/models"
	"github.com/cuikww/Obis-project/internal/services"
)

// TicketHandler handles ticket batch management and the customer search
type TicketHandler struct {
	batchService  *services.BatchService
	searchService *services.SearchService
	logger        *logrus.Logger
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(batchService *services.BatchService, searchService *services.SearchService, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{
		batchService:  batchService,
		searchService: searchService,
		logger:        logger,
	}
}

// operatorScope returns the operator restriction for batch operations:
// operator admins act within their own operator, super admins bypass the
// ownership check with an empty id.
func operatorScope(c *gin.Context) (string, bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not authenticated"})
		return "", false
	}

	if userCtx.Role == models.RoleSuperAdmin {
		return "", true
	}

	if userCtx.OperatorID == nil {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "account is not linked to an operator"})
		return "", false
	}

	return *userCtx.OperatorID, true
}

// CreateBatch handles POST /api/v1/batches
func (h *TicketHandler) CreateBatch(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	var req models.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	batchID, tickets, err := h.batchService.CreateBatch(operatorID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "ticket batch created", gin.H{
		"batch_id": batchID,
		"tickets":  tickets,
	})
}

// GetBatch handles GET /api/v1/batches/:batchId
func (h *TicketHandler) GetBatch(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	tickets, err := h.batchService.GetBatch(operatorID, c.Param("batchId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "batch retrieved", tickets)
}

// UpdateBatch handles PUT /api/v1/batches/:batchId
func (h *TicketHandler) UpdateBatch(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	var req models.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	updated, err := h.batchService.UpdateBatch(operatorID, c.Param("batchId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "batch updated", gin.H{"updated_tickets": updated})
}

// DeleteBatch handles DELETE /api/v1/batches/:batchId
func (h *TicketHandler) DeleteBatch(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	deleted, err := h.batchService.DeleteBatch(operatorID, c.Param("batchId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "batch deleted", gin.H{"deleted_tickets": deleted})
}

// GetTicket handles GET /api/v1/tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	ticket, err := h.batchService.GetTicket(operatorID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "ticket retrieved", ticket)
}

// UpdateTicket handles PUT /api/v1/tickets/:id
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	var req models.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request: " + err.Error()})
		return
	}

	if err := h.batchService.UpdateTicket(operatorID, c.Param("id"), &req); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "ticket updated", nil)
}

// DeleteTicket handles DELETE /api/v1/tickets/:id
func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	operatorID, ok := operatorScope(c)
	if !ok {
		return
	}

	if err := h.batchService.DeleteTicket(operatorID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "ticket deleted", nil)
}

// Search handles GET /api/v1/search/batches for customers
func (h *TicketHandler) Search(c *gin.Context) {
	originCityID := c.Query("origin_city_id")
	destCityID := c.Query("destination_city_id")

	var day *time.Time
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid date, expected YYYY-MM-DD"})
			return
		}
		day = &parsed
	}

	summaries, err := h.searchService.SearchBatches(originCityID, destCityID, day)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "search results", summaries)
}

// GetBatchDetail handles GET /api/v1/batches/:batchId/seats for customer
// seat selection
func (h *TicketHandler) GetBatchDetail(c *gin.Context) {
	detail, err := h.searchService.GetBatchDetail(c.Param("batchId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "batch detail retrieved", detail)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuikww/Obis-project/internal/config"
	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/middleware"
	"github.com/cuikww/Obis-project/internal/models"
	"github.com/cuikww/Obis-project/internal/services"
)

const (
	e2eTicketA = "11111111-1111-1111-1111-111111111111"
	e2eTicketB = "22222222-2222-2222-2222-222222222222"
)

// fakeAuth injects an authenticated customer the way the JWT middleware would
func fakeAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{
			UserID: userID,
			Email:  "budi@example.com",
			Role:   models.RoleCustomer,
		})
		c.Next()
	}
}

func setupOrderHandlerTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, func()) {
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	userRepo := database.NewUserRepository(sqlxDB)
	orderRepo := database.NewOrderRepository(sqlxDB)
	ticketRepo := database.NewTicketRepository(sqlxDB)
	busRepo := database.NewBusRepository(sqlxDB)
	midtrans := services.NewMidtransService(&config.PaymentConfig{Environment: "sandbox"}, logger)
	orderService := services.NewOrderService(orderRepo, ticketRepo, busRepo, midtrans, logger)

	orderHandler := NewOrderHandler(orderService, userRepo, logger)
	paymentHandler := NewPaymentHandler(orderService, logger)

	router := gin.New()
	router.POST("/api/v1/orders", fakeAuth("cust-1"), orderHandler.CreateOnline)
	router.POST("/api/v1/payments/notification", paymentHandler.Notification)

	cleanup := func() {
		db.Close()
	}

	return router, mock, cleanup
}

// A customer books both tickets of a batch, the gateway call fails leaving
// the order pending with the tickets sold, then a deny notification cancels
// the order and frees the tickets again.
func TestOrderLifecycle_OnlineOrderThenDenyNotification(t *testing.T) {
	router, mock, cleanup := setupOrderHandlerTest(t)
	defer cleanup()

	now := time.Now()
	departure := now.Add(24 * time.Hour)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "email", "password_hash", "role", "operator_id", "last_login", "created_at", "updated_at",
		}).AddRow("cust-1", "Budi", "budi@example.com", "hash", "customer", nil, nil, now, now))

	ticketCols := []string{
		"id", "batch_id", "seat_id", "origin_terminal_id", "destination_terminal_id",
		"departure_time", "price", "status", "created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(sqlmock.NewRows(ticketCols).
			AddRow(e2eTicketA, "batch-1", "seat-1", "term-a", "term-b", departure, 50.0, "available", now, now).
			AddRow(e2eTicketB, "batch-1", "seat-2", "term-a", "term-b", departure, 50.0, "available", now, now))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))

	body := `{"ticket_ids": ["` + e2eTicketA + `", "` + e2eTicketB + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// no gateway key configured, so payment initiation fails but the order
	// survives as pending with the tickets reserved
	require.Equal(t, http.StatusBadGateway, w.Code)

	var created struct {
		Data models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Data.ID)
	assert.Equal(t, models.OrderStatusPending, created.Data.Status)
	assert.Equal(t, 100.0, created.Data.TotalPrice)
	assert.Nil(t, created.Data.PaymentToken)

	orderID := created.Data.ID

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "is_offline", "contact_name", "contact_phone", "contact_email",
			"ticket_ids", "total_price", "status", "order_date", "payment_token",
			"payment_redirect_url", "payment_raw", "created_at", "updated_at",
		}).AddRow(orderID, "cust-1", false, nil, nil, nil,
			[]byte("{"+e2eTicketA+","+e2eTicketB+"}"), 100.0, "pending", now, nil, nil, nil, now, now))
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))

	notif := `{"order_id": "` + orderID + `", "transaction_status": "deny", "status_code": "202"}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments/notification", bytes.NewBufferString(notif))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "canceled")
	assert.NoError(t, mock.ExpectationsWereMet())
}

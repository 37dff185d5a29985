package handlers

import (
	"bytes"
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
	"github.com/cuikww/Obis-project/internal/services"
)

const testNotificationOrderID = "0d1f7f2a-9f7a-4a4b-8a10-0f6e5a3c2b1d"

func setupPaymentHandlerTest(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, func()) {
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	orderRepo := database.NewOrderRepository(sqlxDB)
	ticketRepo := database.NewTicketRepository(sqlxDB)
	busRepo := database.NewBusRepository(sqlxDB)
	midtrans := services.NewMidtransService(&config.PaymentConfig{Environment: "sandbox"}, logger)
	orderService := services.NewOrderService(orderRepo, ticketRepo, busRepo, midtrans, logger)

	handler := NewPaymentHandler(orderService, logger)

	router := gin.New()
	router.POST("/api/v1/payments/notification", handler.Notification)

	cleanup := func() {
		db.Close()
	}

	return router, mock, cleanup
}

func postNotification(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notification", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNotification_MalformedPayloadRejected(t *testing.T) {
	router, mock, cleanup := setupPaymentHandlerTest(t)
	defer cleanup()

	w := postNotification(router, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotification_MissingFieldsRejected(t *testing.T) {
	router, mock, cleanup := setupPaymentHandlerTest(t)
	defer cleanup()

	w := postNotification(router, `{"order_id": "abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotification_TestNotificationAcknowledged(t *testing.T) {
	router, mock, cleanup := setupPaymentHandlerTest(t)
	defer cleanup()

	// gateway connectivity tests use synthetic order ids and must be
	// acknowledged, not rejected
	w := postNotification(router, `{"order_id": "payment_notif_test_G141517700_1", "transaction_status": "settlement", "status_code": "200"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotification_UnknownOrderAcknowledged(t *testing.T) {
	router, mock, cleanup := setupPaymentHandlerTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testNotificationOrderID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "is_offline", "contact_name", "contact_phone", "contact_email",
			"ticket_ids", "total_price", "status", "order_date", "payment_token",
			"payment_redirect_url", "payment_raw", "created_at", "updated_at",
		}))

	w := postNotification(router, `{"order_id": "`+testNotificationOrderID+`", "transaction_status": "settlement", "status_code": "200"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotification_SettlementReturnsOutcome(t *testing.T) {
	router, mock, cleanup := setupPaymentHandlerTest(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testNotificationOrderID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "is_offline", "contact_name", "contact_phone", "contact_email",
			"ticket_ids", "total_price", "status", "order_date", "payment_token",
			"payment_redirect_url", "payment_raw", "created_at", "updated_at",
		}).AddRow(testNotificationOrderID, nil, false, nil, nil, nil, []byte("{t1}"), 100.0, "pending", now, nil, nil, nil, now, now))
	mock.ExpectExec("UPDATE orders").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := postNotification(router, `{"order_id": "`+testNotificationOrderID+`", "transaction_status": "settlement", "status_code": "200"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "paid")
	assert.NoError(t, mock.ExpectationsWereMet())
}

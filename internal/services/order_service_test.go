package services

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuikww/Obis-project/internal/config"
	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/models"
)

const (
	testOrderID  = "0d1f7f2a-9f7a-4a4b-8a10-0f6e5a3c2b1d"
	testTicketID = "6b1a2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupOrderServiceTest(t *testing.T) (*OrderService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := testLogger()

	orderRepo := database.NewOrderRepository(sqlxDB)
	ticketRepo := database.NewTicketRepository(sqlxDB)
	busRepo := database.NewBusRepository(sqlxDB)
	midtrans := NewMidtransService(&config.PaymentConfig{Environment: "sandbox"}, logger)

	service := NewOrderService(orderRepo, ticketRepo, busRepo, midtrans, logger)

	cleanup := func() {
		db.Close()
	}

	return service, mock, cleanup
}

var orderTestColumns = []string{
	"id", "customer_id", "is_offline", "contact_name", "contact_phone", "contact_email",
	"ticket_ids", "total_price", "status", "order_date", "payment_token",
	"payment_redirect_url", "payment_raw", "created_at", "updated_at",
}

func pendingOrderRow(orderID string, ticketIDs string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(orderTestColumns).
		AddRow(orderID, nil, false, nil, nil, nil, []byte(ticketIDs), 100.0, "pending", now, nil, nil, nil, now, now)
}

func ticketRows(ids []string, price float64) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "batch_id", "seat_id", "origin_terminal_id", "destination_terminal_id",
		"departure_time", "price", "status", "created_at", "updated_at",
	})
	for _, id := range ids {
		rows.AddRow(id, "batch-1", "seat-"+id, "term-a", "term-b", now.Add(24*time.Hour), price, "available", now, now)
	}
	return rows
}

func TestHandlePaymentNotification_SettlementMarksPaid(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	notification := &PaymentNotification{
		OrderID:           testOrderID,
		TransactionStatus: "settlement",
		StatusCode:        "200",
	}
	raw, _ := json.Marshal(notification)

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))
	mock.ExpectExec("UPDATE orders").
		WithArgs(testOrderID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders").
		WithArgs(testOrderID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, err := service.HandlePaymentNotification(notification, raw)
	assert.NoError(t, err)
	assert.Equal(t, NotificationOutcomePaid, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentNotification_DuplicateSettlementIsNoop(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	notification := &PaymentNotification{
		OrderID:           testOrderID,
		TransactionStatus: "settlement",
		StatusCode:        "200",
	}
	raw, _ := json.Marshal(notification)

	// the conditional transition matches nothing on redelivery, and no
	// ticket mutation happens
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))
	mock.ExpectExec("UPDATE orders").
		WithArgs(testOrderID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	outcome, err := service.HandlePaymentNotification(notification, raw)
	assert.NoError(t, err)
	assert.Equal(t, NotificationOutcomeNoop, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentNotification_DenyCancelsAndReleases(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	notification := &PaymentNotification{
		OrderID:           testOrderID,
		TransactionStatus: "deny",
		StatusCode:        "202",
	}
	raw, _ := json.Marshal(notification)

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))
	mock.ExpectExec("UPDATE orders").
		WithArgs(testOrderID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders").
		WithArgs(testOrderID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, err := service.HandlePaymentNotification(notification, raw)
	assert.NoError(t, err)
	assert.Equal(t, NotificationOutcomeCanceled, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentNotification_NonInternalOrderIDIgnored(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	notification := &PaymentNotification{
		OrderID:           "payment_notif_test_G141517700_1",
		TransactionStatus: "settlement",
		StatusCode:        "200",
	}

	outcome, err := service.HandlePaymentNotification(notification, nil)
	assert.NoError(t, err)
	assert.Equal(t, NotificationOutcomeIgnored, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentNotification_UnknownOrderIgnored(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	notification := &PaymentNotification{
		OrderID:           testOrderID,
		TransactionStatus: "settlement",
		StatusCode:        "200",
	}

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(sqlmock.NewRows(orderTestColumns))

	outcome, err := service.HandlePaymentNotification(notification, nil)
	assert.NoError(t, err)
	assert.Equal(t, NotificationOutcomeIgnored, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentNotification_PendingEchoIsNoop(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	notification := &PaymentNotification{
		OrderID:           testOrderID,
		TransactionStatus: "pending",
		StatusCode:        "201",
	}

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))

	outcome, err := service.HandlePaymentNotification(notification, nil)
	assert.NoError(t, err)
	assert.Equal(t, NotificationOutcomeNoop, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOnlineOrder_GatewayFailureLeavesPendingOrder(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	customer := &models.User{ID: "cust-1", Name: "Budi", Email: "budi@example.com"}
	req := &models.CreateOnlineOrderRequest{TicketIDs: []string{"t1", "t2"}}

	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(ticketRows([]string{"t1", "t2"}, 50))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// midtrans has no server key configured, so the gateway call fails
	// after the order is persisted
	order, err := service.CreateOnlineOrder(customer, req)
	assert.ErrorIs(t, err, ErrGateway)
	require.NotNil(t, order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 100.0, order.TotalPrice)
	assert.Nil(t, order.PaymentToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOnlineOrder_ConflictWhenTicketsTaken(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	customer := &models.User{ID: "cust-1", Name: "Budi", Email: "budi@example.com"}
	req := &models.CreateOnlineOrderRequest{TicketIDs: []string{"t1", "t2"}}

	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(ticketRows([]string{"t1", "t2"}, 50))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	order, err := service.CreateOnlineOrder(customer, req)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOnlineOrder_UnknownTicketRejected(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	customer := &models.User{ID: "cust-1", Name: "Budi", Email: "budi@example.com"}
	req := &models.CreateOnlineOrderRequest{TicketIDs: []string{"t1", "t2"}}

	// only one of the two requested tickets exists; nothing is reserved
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(ticketRows([]string{"t1"}, 50))

	order, err := service.CreateOnlineOrder(customer, req)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrder_ReleasesTickets(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))
	mock.ExpectExec("UPDATE orders").
		WithArgs(testOrderID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.CancelOrder("", testOrderID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrder_RejectsSettledOrder(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	// order already left pending; the conditional transition matches
	// nothing and no tickets are touched
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))
	mock.ExpectExec("UPDATE orders").
		WithArgs(testOrderID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.CancelOrder("", testOrderID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrder_ForbiddenForOtherCustomer(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))

	err := service.CancelOrder("someone-else", testOrderID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	testTicketID2 = "7c2b3d4e-5f6a-4b7c-8d9e-0f1a2b3c4d5e"
	testTicketID3 = "8d3c4e5f-6a7b-4c8d-9e0f-1a2b3c4d5e6f"
)

func offlineOrderRow(orderID, ticketIDs, status string) *sqlmock.Rows {
	now := time.Now()
	name := "Budi"
	phone := "081234567890"
	return sqlmock.NewRows(orderTestColumns).
		AddRow(orderID, nil, true, name, phone, nil, []byte(ticketIDs), 150.0, status, now, nil, nil, nil, now, now)
}

func TestCreateOfflineOrder_ReservesAndPersists(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(ticketRows([]string{testTicketID, testTicketID2}, 75.0))
	mock.ExpectQuery("SELECT DISTINCT").
		WillReturnRows(sqlmock.NewRows([]string{"bus_id"}).AddRow("bus-1"))
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id").
		WithArgs("bus-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "operator_id", "name", "capacity", "created_at", "updated_at"}).
			AddRow("bus-1", "operator-1", "Sinar Jaya", 2, now, now))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))

	req := &models.CreateOfflineOrderRequest{
		TicketIDs:    []string{testTicketID, testTicketID2},
		ContactName:  "Budi",
		ContactPhone: "081234567890",
	}

	order, err := service.CreateOfflineOrder("operator-1", req)
	require.NoError(t, err)
	assert.True(t, order.IsOffline)
	assert.Nil(t, order.CustomerID)
	assert.Equal(t, 150.0, order.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfflineOrder_ForbiddenForForeignBus(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	// ownership fails before any reservation happens
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(ticketRows([]string{testTicketID}, 75.0))
	mock.ExpectQuery("SELECT DISTINCT").
		WillReturnRows(sqlmock.NewRows([]string{"bus_id"}).AddRow("bus-1"))
	mock.ExpectQuery("SELECT (.+) FROM buses WHERE id").
		WithArgs("bus-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "operator_id", "name", "capacity", "created_at", "updated_at"}).
			AddRow("bus-1", "operator-other", "Sinar Jaya", 2, now, now))

	req := &models.CreateOfflineOrderRequest{
		TicketIDs:    []string{testTicketID},
		ContactName:  "Budi",
		ContactPhone: "081234567890",
	}

	_, err := service.CreateOfflineOrder("operator-mine", req)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOfflineOrder_RejectsCanceledStatus(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	status := "canceled"
	req := &models.CreateOfflineOrderRequest{
		TicketIDs:    []string{testTicketID},
		Status:       &status,
		ContactName:  "Budi",
		ContactPhone: "081234567890",
	}

	_, err := service.CreateOfflineOrder("operator-1", req)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfflineOrder_ForbiddenForOnlineOrder(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(pendingOrderRow(testOrderID, "{"+testTicketID+"}"))

	name := "Budi"
	_, err := service.UpdateOfflineOrder("", testOrderID, &models.UpdateOfflineOrderRequest{ContactName: &name})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfflineOrder_RejectsSettledOrder(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	// a canceled order released its tickets already; reviving it would
	// leave them available under an active order
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(offlineOrderRow(testOrderID, "{"+testTicketID+"}", "canceled"))

	status := "pending"
	_, err := service.UpdateOfflineOrder("", testOrderID, &models.UpdateOfflineOrderRequest{Status: &status})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfflineOrder_SwapsTicketSet(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(offlineOrderRow(testOrderID, "{"+testTicketID+"}", "pending"))
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(ticketRows([]string{testTicketID2, testTicketID3}, 60.0))

	// old set freed, new set reserved
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))

	order, err := service.UpdateOfflineOrder("", testOrderID, &models.UpdateOfflineOrderRequest{
		TicketIDs: []string{testTicketID2, testTicketID3},
	})
	require.NoError(t, err)
	assert.Equal(t, models.UUIDArray{testTicketID2, testTicketID3}, order.TicketIDs)
	assert.Equal(t, 120.0, order.TotalPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOfflineOrder_RestoresOldSetOnSwapConflict(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(offlineOrderRow(testOrderID, "{"+testTicketID+"}", "pending"))
	mock.ExpectQuery("SELECT (.+) FROM tickets WHERE id IN").
		WillReturnRows(ticketRows([]string{testTicketID2, testTicketID3}, 60.0))

	// old set freed, then the new reservation falls short and rolls back
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	// the previous set is taken back before reporting the conflict
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := service.UpdateOfflineOrder("", testOrderID, &models.UpdateOfflineOrderRequest{
		TicketIDs: []string{testTicketID2, testTicketID3},
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOfflineOrder_ReleasesTickets(t *testing.T) {
	service, mock, cleanup := setupOrderServiceTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(testOrderID).
		WillReturnRows(offlineOrderRow(testOrderID, "{"+testTicketID+"}", "pending"))
	mock.ExpectExec("UPDATE tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM orders").
		WithArgs(testOrderID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := service.DeleteOfflineOrder("", testOrderID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/jmoiron/sqlx"
)

// OrderRepository handles orders database operations
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, customer_id, is_offline, contact_name, contact_phone, contact_email, ticket_ids, total_price, status, order_date, payment_token, payment_redirect_url, payment_raw, created_at, updated_at`

// Create persists a new order
func (r *OrderRepository) Create(order *models.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_id, is_offline, contact_name, contact_phone, contact_email,
			ticket_ids, total_price, status, order_date, payment_token,
			payment_redirect_url, payment_raw, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(query,
		order.ID,
		order.CustomerID,
		order.IsOffline,
		order.ContactName,
		order.ContactPhone,
		order.ContactEmail,
		order.TicketIDs,
		order.TotalPrice,
		order.Status,
		order.OrderDate,
		order.PaymentToken,
		order.PaymentRedirectURL,
		order.PaymentRaw,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID returns a single order by ID
func (r *OrderRepository) GetByID(id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var order models.Order
	if err := r.db.Get(&order, query, id); err != nil {
		return nil, err
	}

	return &order, nil
}

// GetByCustomerID returns a customer's orders, newest first
func (r *OrderRepository) GetByCustomerID(customerID string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY order_date DESC`

	var orders []models.Order
	if err := r.db.Select(&orders, query, customerID); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetByOperatorID returns orders that contain at least one ticket on one of
// the operator's buses, newest first
func (r *OrderRepository) GetByOperatorID(operatorID string) ([]models.Order, error) {
	query := `
		SELECT DISTINCT o.id, o.customer_id, o.is_offline, o.contact_name, o.contact_phone,
			   o.contact_email, o.ticket_ids, o.total_price, o.status, o.order_date,
			   o.payment_token, o.payment_redirect_url, o.payment_raw, o.created_at, o.updated_at
		FROM orders o
		JOIN tickets t ON t.id = ANY(o.ticket_ids)
		JOIN seats s ON t.seat_id = s.id
		JOIN buses b ON s.bus_id = b.id
		WHERE b.operator_id = $1
		ORDER BY o.order_date DESC
	`

	var orders []models.Order
	if err := r.db.Select(&orders, query, operatorID); err != nil {
		return nil, err
	}

	return orders, nil
}

// MarkPaidIfPending moves a pending order to paid. Returns true when this
// call performed the transition, false when the order was already settled.
func (r *OrderRepository) MarkPaidIfPending(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE orders
		SET status = 'paid', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected == 1, nil
}

// MarkCanceledIfPending moves a pending order to canceled. Returns true when
// this call performed the transition.
func (r *OrderRepository) MarkCanceledIfPending(id string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE orders
		SET status = 'canceled', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark order canceled: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected == 1, nil
}

// UpdatePaymentInfo stores the gateway token and redirect URL on an order
func (r *OrderRepository) UpdatePaymentInfo(id, token, redirectURL string) error {
	_, err := r.db.Exec(`
		UPDATE orders
		SET payment_token = $2, payment_redirect_url = $3, updated_at = $4
		WHERE id = $1
	`, id, token, redirectURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update payment info: %w", err)
	}

	return nil
}

// UpdatePaymentRaw stores the latest raw gateway notification on an order
func (r *OrderRepository) UpdatePaymentRaw(id string, raw json.RawMessage) error {
	_, err := r.db.Exec(`
		UPDATE orders
		SET payment_raw = $2, updated_at = $3
		WHERE id = $1
	`, id, raw, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update payment payload: %w", err)
	}

	return nil
}

// UpdateOffline rewrites the mutable fields of an offline order
func (r *OrderRepository) UpdateOffline(order *models.Order) error {
	result, err := r.db.Exec(`
		UPDATE orders
		SET contact_name = $2, contact_phone = $3, contact_email = $4,
			ticket_ids = $5, total_price = $6, status = $7, updated_at = $8
		WHERE id = $1
	`,
		order.ID,
		order.ContactName,
		order.ContactPhone,
		order.ContactEmail,
		order.TicketIDs,
		order.TotalPrice,
		order.Status,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("order not found")
	}

	return nil
}

// Delete removes an order
func (r *OrderRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("order not found")
	}

	return nil
}

// GetStalePending returns online pending orders older than the payment
// window that never received a gateway transaction handle. Orders holding a
// snap token are left for the gateway's own expire notification.
func (r *OrderRepository) GetStalePending(olderThan time.Time) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'pending' AND is_offline = false
		  AND payment_token IS NULL AND order_date < $1`

	var orders []models.Order
	if err := r.db.Select(&orders, query, olderThan); err != nil {
		return nil, err
	}

	return orders, nil
}

// PurgeCanceled removes canceled orders older than retentionDays
func (r *OrderRepository) PurgeCanceled(retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := r.db.Exec(`
		DELETE FROM orders
		WHERE status = 'canceled' AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge canceled orders: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

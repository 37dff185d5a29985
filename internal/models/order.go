package models

import (
	"errors"
	"time"
)

// OrderStatus represents the lifecycle state of an order.
// pending is the only non-terminal state; paid and canceled are terminal.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order references one or more tickets. Online orders carry a customer
// reference and a payment transaction; offline orders carry manually entered
// contact fields instead. TotalPrice is captured at creation time and never
// recomputed from live ticket data.
type Order struct {
	ID           string      `json:"id" db:"id"`
	CustomerID   *string     `json:"customer_id,omitempty" db:"customer_id"`
	IsOffline    bool        `json:"is_offline" db:"is_offline"`
	ContactName  *string     `json:"contact_name,omitempty" db:"contact_name"`
	ContactPhone *string     `json:"contact_phone,omitempty" db:"contact_phone"`
	ContactEmail *string     `json:"contact_email,omitempty" db:"contact_email"`
	TicketIDs    UUIDArray   `json:"ticket_ids" db:"ticket_ids"`
	TotalPrice   float64     `json:"total_price" db:"total_price"`
	Status       OrderStatus `json:"status" db:"status"`
	OrderDate    time.Time   `json:"order_date" db:"order_date"`

	// Payment transaction handle, present only for online orders that
	// reached the gateway
	PaymentToken       *string `json:"payment_token,omitempty" db:"payment_token"`
	PaymentRedirectURL *string `json:"payment_redirect_url,omitempty" db:"payment_redirect_url"`
	PaymentRaw         JSONRaw `json:"payment_raw,omitempty" db:"payment_raw"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusCanceled
}

// CreateOnlineOrderRequest represents a customer order for a ticket set
type CreateOnlineOrderRequest struct {
	TicketIDs []string `json:"ticket_ids" binding:"required,min=1"`
}

// CreateOfflineOrderRequest represents an operator-entered order for a
// walk-up passenger, bypassing the payment gateway
type CreateOfflineOrderRequest struct {
	TicketIDs    []string `json:"ticket_ids" binding:"required,min=1"`
	Status       *string  `json:"status,omitempty"`
	ContactName  string   `json:"contact_name" binding:"required"`
	ContactPhone string   `json:"contact_phone" binding:"required"`
	ContactEmail *string  `json:"contact_email,omitempty"`
}

// UpdateOfflineOrderRequest represents an operator update of an offline order
type UpdateOfflineOrderRequest struct {
	TicketIDs    []string `json:"ticket_ids,omitempty"`
	Status       *string  `json:"status,omitempty"`
	ContactName  *string  `json:"contact_name,omitempty"`
	ContactPhone *string  `json:"contact_phone,omitempty"`
	ContactEmail *string  `json:"contact_email,omitempty"`
}

// Validate validates the CreateOfflineOrderRequest
func (req *CreateOfflineOrderRequest) Validate() error {
	if len(req.TicketIDs) == 0 {
		return errors.New("ticket_ids must not be empty")
	}
	if req.ContactName == "" || req.ContactPhone == "" {
		return errors.New("contact_name and contact_phone are required for offline orders")
	}
	if req.Status != nil {
		if err := validateOrderStatus(*req.Status); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the UpdateOfflineOrderRequest
func (req *UpdateOfflineOrderRequest) Validate() error {
	if req.Status != nil {
		if err := validateOrderStatus(*req.Status); err != nil {
			return err
		}
	}
	return nil
}

func validateOrderStatus(s string) error {
	status := OrderStatus(s)
	if status != OrderStatusPending && status != OrderStatusPaid && status != OrderStatusCanceled {
		return errors.New("invalid status: must be pending, paid, or canceled")
	}
	return nil
}

// OrderWithContact resolves the displayed contact information: offline
// orders use the manual contact fields, online orders the customer account
type OrderWithContact struct {
	Order
	CustomerName  *string `json:"customer_name,omitempty" db:"customer_name"`
	CustomerEmail *string `json:"customer_email,omitempty" db:"customer_email"`
}

package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/models"
)

// NotificationOutcome describes what a payment notification did to an order
type NotificationOutcome string

const (
	// NotificationOutcomePaid means this delivery moved the order to paid
	NotificationOutcomePaid NotificationOutcome = "paid"
	// NotificationOutcomeCanceled means this delivery canceled the order
	// and released its tickets
	NotificationOutcomeCanceled NotificationOutcome = "canceled"
	// NotificationOutcomeNoop means the order was found but no transition
	// applied (duplicate delivery or intermediate status echo)
	NotificationOutcomeNoop NotificationOutcome = "noop"
	// NotificationOutcomeIgnored means the notification did not reference
	// a known order and was acknowledged without mutation
	NotificationOutcomeIgnored NotificationOutcome = "ignored"
)

// OrderService orchestrates ticket reservation, order persistence, the
// payment gateway call, and settlement reconciliation.
type OrderService struct {
	orderRepo  *database.OrderRepository
	ticketRepo *database.TicketRepository
	busRepo    *database.BusRepository
	midtrans   *MidtransService
	logger     *logrus.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo *database.OrderRepository,
	ticketRepo *database.TicketRepository,
	busRepo *database.BusRepository,
	midtrans *MidtransService,
	logger *logrus.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		ticketRepo: ticketRepo,
		busRepo:    busRepo,
		midtrans:   midtrans,
		logger:     logger,
	}
}

// CreateOnlineOrder reserves the requested tickets, persists a pending
// order, and registers it with the payment gateway. If the gateway call
// fails the order stays pending with no transaction handle; the expiration
// sweep reclaims it later.
func (s *OrderService) CreateOnlineOrder(customer *models.User, req *models.CreateOnlineOrderRequest) (*models.Order, error) {
	if len(req.TicketIDs) == 0 {
		return nil, fmt.Errorf("%w: ticket_ids must not be empty", ErrValidation)
	}

	tickets, err := s.loadTicketSet(req.TicketIDs)
	if err != nil {
		return nil, err
	}

	if err := s.ticketRepo.Reserve(req.TicketIDs); err != nil {
		if errors.Is(err, database.ErrTicketsUnavailable) {
			return nil, fmt.Errorf("%w: some tickets are no longer available", ErrConflict)
		}
		return nil, fmt.Errorf("failed to reserve tickets: %w", err)
	}

	total := sumPrices(tickets)
	now := time.Now()

	order := &models.Order{
		ID:         uuid.New().String(),
		CustomerID: &customer.ID,
		IsOffline:  false,
		TicketIDs:  models.UUIDArray(req.TicketIDs),
		TotalPrice: total,
		Status:     models.OrderStatusPending,
		OrderDate:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.orderRepo.Create(order); err != nil {
		if relErr := s.ticketRepo.Release(req.TicketIDs); relErr != nil {
			s.logger.WithError(relErr).Error("Failed to release tickets after order insert failure")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":    order.ID,
		"customer_id": customer.ID,
		"tickets":     len(req.TicketIDs),
		"total_price": total,
	}).Info("Online order created")

	snapResp, err := s.midtrans.CreateTransaction(order.ID, total, &SnapCustomerDetails{
		FirstName: customer.Name,
		Email:     customer.Email,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).
			Error("Payment gateway call failed, order left pending without transaction handle")
		return order, fmt.Errorf("%w: order %s created but payment could not be initiated", ErrGateway, order.ID)
	}

	if err := s.orderRepo.UpdatePaymentInfo(order.ID, snapResp.Token, snapResp.RedirectURL); err != nil {
		return order, fmt.Errorf("failed to store payment info: %w", err)
	}

	order.PaymentToken = &snapResp.Token
	order.PaymentRedirectURL = &snapResp.RedirectURL

	return order, nil
}

// CreateOfflineOrder records an operator-entered order for a walk-up
// passenger. No gateway call is made; status comes from the request and
// defaults to pending. operatorID must own every bus backing the tickets;
// super admins pass an empty id.
func (s *OrderService) CreateOfflineOrder(operatorID string, req *models.CreateOfflineOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	status := models.OrderStatusPending
	if req.Status != nil {
		status = models.OrderStatus(*req.Status)
	}
	if status == models.OrderStatusCanceled {
		return nil, fmt.Errorf("%w: offline orders cannot be created canceled", ErrValidation)
	}

	tickets, err := s.loadTicketSet(req.TicketIDs)
	if err != nil {
		return nil, err
	}

	if err := s.ensureOperatorOwnsTickets(operatorID, req.TicketIDs); err != nil {
		return nil, err
	}

	if err := s.ticketRepo.Reserve(req.TicketIDs); err != nil {
		if errors.Is(err, database.ErrTicketsUnavailable) {
			return nil, fmt.Errorf("%w: some tickets are no longer available", ErrConflict)
		}
		return nil, fmt.Errorf("failed to reserve tickets: %w", err)
	}

	now := time.Now()
	order := &models.Order{
		ID:           uuid.New().String(),
		IsOffline:    true,
		ContactName:  &req.ContactName,
		ContactPhone: &req.ContactPhone,
		ContactEmail: req.ContactEmail,
		TicketIDs:    models.UUIDArray(req.TicketIDs),
		TotalPrice:   sumPrices(tickets),
		Status:       status,
		OrderDate:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.orderRepo.Create(order); err != nil {
		if relErr := s.ticketRepo.Release(req.TicketIDs); relErr != nil {
			s.logger.WithError(relErr).Error("Failed to release tickets after order insert failure")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"tickets":  len(req.TicketIDs),
		"status":   status,
	}).Info("Offline order created")

	return order, nil
}

// UpdateOfflineOrder mutates a pending operator-entered order. Changing the
// ticket set releases the old tickets, reserves the new set, and recomputes
// the total price. Customer-placed and settled orders are never touched
// through this path.
func (s *OrderService) UpdateOfflineOrder(operatorID, orderID string, req *models.UpdateOfflineOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	order, err := s.getOfflineOrder(operatorID, orderID)
	if err != nil {
		return nil, err
	}

	if len(req.TicketIDs) > 0 {
		newTickets, err := s.loadTicketSet(req.TicketIDs)
		if err != nil {
			return nil, err
		}
		if err := s.ensureOperatorOwnsTickets(operatorID, req.TicketIDs); err != nil {
			return nil, err
		}

		oldIDs := []string(order.TicketIDs)
		if err := s.ticketRepo.Release(oldIDs); err != nil {
			return nil, fmt.Errorf("failed to release previous tickets: %w", err)
		}

		if err := s.ticketRepo.Reserve(req.TicketIDs); err != nil {
			// try to restore the previous reservation before reporting
			if restoreErr := s.ticketRepo.Reserve(oldIDs); restoreErr != nil {
				s.logger.WithError(restoreErr).WithField("order_id", orderID).
					Error("Failed to restore previous ticket set after reservation conflict")
			}
			if errors.Is(err, database.ErrTicketsUnavailable) {
				return nil, fmt.Errorf("%w: some tickets are no longer available", ErrConflict)
			}
			return nil, fmt.Errorf("failed to reserve tickets: %w", err)
		}

		order.TicketIDs = models.UUIDArray(req.TicketIDs)
		order.TotalPrice = sumPrices(newTickets)
	}

	if req.ContactName != nil {
		order.ContactName = req.ContactName
	}
	if req.ContactPhone != nil {
		order.ContactPhone = req.ContactPhone
	}
	if req.ContactEmail != nil {
		order.ContactEmail = req.ContactEmail
	}
	if req.Status != nil {
		// the order is still pending here, getOfflineOrder rejects settled ones
		newStatus := models.OrderStatus(*req.Status)
		if newStatus == models.OrderStatusCanceled {
			if err := s.ticketRepo.Release(order.TicketIDs); err != nil {
				return nil, fmt.Errorf("failed to release tickets: %w", err)
			}
		}
		order.Status = newStatus
	}

	if err := s.orderRepo.UpdateOffline(order); err != nil {
		return nil, err
	}

	s.logger.WithField("order_id", orderID).Info("Offline order updated")

	return order, nil
}

// DeleteOfflineOrder removes a pending operator-entered order and releases
// its tickets. Settled orders stay on record until the retention purge.
func (s *OrderService) DeleteOfflineOrder(operatorID, orderID string) error {
	order, err := s.getOfflineOrder(operatorID, orderID)
	if err != nil {
		return err
	}

	if err := s.ticketRepo.Release(order.TicketIDs); err != nil {
		return fmt.Errorf("failed to release tickets: %w", err)
	}

	if err := s.orderRepo.Delete(orderID); err != nil {
		return err
	}

	s.logger.WithField("order_id", orderID).Info("Offline order deleted")

	return nil
}

// CancelOrder cancels a pending order and releases its tickets. customerID
// restricts the operation to the order's owner; internal callers pass an
// empty id.
func (s *OrderService) CancelOrder(customerID, orderID string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: order not found", ErrNotFound)
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	if customerID != "" {
		if order.CustomerID == nil || *order.CustomerID != customerID {
			return fmt.Errorf("%w: order belongs to another customer", ErrForbidden)
		}
	}

	transitioned, err := s.orderRepo.MarkCanceledIfPending(orderID)
	if err != nil {
		return err
	}
	if !transitioned {
		return fmt.Errorf("%w: only pending orders can be canceled", ErrConflict)
	}

	if err := s.ticketRepo.Release(order.TicketIDs); err != nil {
		return fmt.Errorf("failed to release tickets: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"tickets":  len(order.TicketIDs),
	}).Info("Order canceled")

	return nil
}

// GetOrder returns one order, restricted to its owner when customerID is set
func (s *OrderService) GetOrder(customerID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if customerID != "" {
		if order.CustomerID == nil || *order.CustomerID != customerID {
			return nil, fmt.Errorf("%w: order belongs to another customer", ErrForbidden)
		}
	}

	return order, nil
}

// GetCustomerOrders returns a customer's order history
func (s *OrderService) GetCustomerOrders(customerID string) ([]models.Order, error) {
	orders, err := s.orderRepo.GetByCustomerID(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

// GetOperatorOrders returns orders touching the operator's buses
func (s *OrderService) GetOperatorOrders(operatorID string) ([]models.Order, error) {
	orders, err := s.orderRepo.GetByOperatorID(operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

// HandlePaymentNotification applies a gateway settlement notification to an
// order. Terminal transitions are conditional on the order still being
// pending, so duplicate deliveries are no-ops. Unknown or unparseable order
// ids are acknowledged without mutation; the gateway retries anything else.
func (s *OrderService) HandlePaymentNotification(n *PaymentNotification, raw json.RawMessage) (NotificationOutcome, error) {
	log := s.logger.WithFields(logrus.Fields{
		"order_id":           n.OrderID,
		"transaction_status": n.TransactionStatus,
		"status_code":        n.StatusCode,
	})

	// Gateway test notifications use synthetic order ids; acknowledge and
	// move on.
	if _, err := uuid.Parse(n.OrderID); err != nil {
		log.Info("Ignoring notification with non-internal order id")
		return NotificationOutcomeIgnored, nil
	}

	if s.midtrans.IsConfigured() && n.SignatureKey != "" && !s.midtrans.VerifySignature(n) {
		log.Warn("Ignoring notification with invalid signature")
		return NotificationOutcomeIgnored, nil
	}

	order, err := s.orderRepo.GetByID(n.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Info("Ignoring notification for unknown order")
			return NotificationOutcomeIgnored, nil
		}
		return "", fmt.Errorf("failed to load order: %w", err)
	}

	switch n.TransactionStatus {
	case "settlement", "capture":
		if n.StatusCode != "200" {
			log.Info("Ignoring settlement notification with non-success status code")
			return NotificationOutcomeNoop, nil
		}
		if n.TransactionStatus == "capture" && n.FraudStatus == "challenge" {
			log.Info("Ignoring capture notification held for fraud review")
			return NotificationOutcomeNoop, nil
		}

		transitioned, err := s.orderRepo.MarkPaidIfPending(order.ID)
		if err != nil {
			return "", err
		}
		if !transitioned {
			log.Info("Duplicate settlement notification, order already settled")
			return NotificationOutcomeNoop, nil
		}

		if err := s.orderRepo.UpdatePaymentRaw(order.ID, raw); err != nil {
			s.logger.WithError(err).Warn("Failed to store raw settlement payload")
		}

		log.Info("Order marked paid")
		return NotificationOutcomePaid, nil

	case "cancel", "expire", "deny", "failure":
		transitioned, err := s.orderRepo.MarkCanceledIfPending(order.ID)
		if err != nil {
			return "", err
		}
		if !transitioned {
			log.Info("Duplicate terminal notification, order already settled")
			return NotificationOutcomeNoop, nil
		}

		if err := s.ticketRepo.Release(order.TicketIDs); err != nil {
			return "", fmt.Errorf("failed to release tickets: %w", err)
		}

		if err := s.orderRepo.UpdatePaymentRaw(order.ID, raw); err != nil {
			s.logger.WithError(err).Warn("Failed to store raw settlement payload")
		}

		log.WithField("tickets", len(order.TicketIDs)).Info("Order canceled by gateway notification")
		return NotificationOutcomeCanceled, nil

	default:
		log.Info("Notification carries no actionable status")
		return NotificationOutcomeNoop, nil
	}
}

func (s *OrderService) getOfflineOrder(operatorID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: order not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if !order.IsOffline {
		return nil, fmt.Errorf("%w: customer orders cannot be modified by operators", ErrForbidden)
	}

	// Settled orders are immutable: reviving a canceled order or editing a
	// paid one would desync ticket statuses from the order that sold them.
	if order.IsTerminal() {
		return nil, fmt.Errorf("%w: order is already %s", ErrConflict, order.Status)
	}

	if err := s.ensureOperatorOwnsTickets(operatorID, order.TicketIDs); err != nil {
		return nil, err
	}

	return order, nil
}

// loadTicketSet returns the tickets for the given ids, failing when any id
// is unknown
func (s *OrderService) loadTicketSet(ticketIDs []string) ([]models.Ticket, error) {
	tickets, err := s.ticketRepo.GetByIDs(ticketIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	if len(tickets) != len(ticketIDs) {
		return nil, fmt.Errorf("%w: some tickets do not exist", ErrNotFound)
	}
	return tickets, nil
}

func (s *OrderService) ensureOperatorOwnsTickets(operatorID string, ticketIDs []string) error {
	if operatorID == "" {
		return nil
	}

	busIDs, err := s.ticketRepo.GetBusIDsForTickets(ticketIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve ticket buses: %w", err)
	}

	for _, busID := range busIDs {
		bus, err := s.busRepo.GetByID(busID)
		if err != nil {
			return fmt.Errorf("failed to load bus: %w", err)
		}
		if bus.OperatorID != operatorID {
			return fmt.Errorf("%w: tickets belong to another operator's bus", ErrForbidden)
		}
	}

	return nil
}

func sumPrices(tickets []models.Ticket) float64 {
	var total float64
	for _, t := range tickets {
		total += t.Price
	}
	return total
}

package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/config"
	"github.com/cuikww/Obis-project/internal/database"
)

// OrderExpirationService periodically cancels online orders that stayed
// pending past the payment window and returns their tickets to inventory.
// This covers both abandoned checkouts and orders whose gateway call failed
// before a transaction handle was recorded.
type OrderExpirationService struct {
	orderRepo  *database.OrderRepository
	ticketRepo *database.TicketRepository
	config     config.ReservationConfig
	logger     *logrus.Logger
	stopCh     chan struct{}
}

// NewOrderExpirationService creates a new OrderExpirationService
func NewOrderExpirationService(
	orderRepo *database.OrderRepository,
	ticketRepo *database.TicketRepository,
	cfg config.ReservationConfig,
	logger *logrus.Logger,
) *OrderExpirationService {
	return &OrderExpirationService{
		orderRepo:  orderRepo,
		ticketRepo: ticketRepo,
		config:     cfg,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the background sweep loop
func (s *OrderExpirationService) Start() {
	go s.run()
	s.logger.WithFields(logrus.Fields{
		"payment_window": s.config.PaymentWindow,
		"sweep_interval": s.config.SweepInterval,
	}).Info("Order expiration service started")
}

// Stop terminates the sweep loop
func (s *OrderExpirationService) Stop() {
	close(s.stopCh)
	s.logger.Info("Order expiration service stopped")
}

func (s *OrderExpirationService) run() {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepExpired()
		case <-s.stopCh:
			return
		}
	}
}

// SweepExpired cancels every online order pending longer than the payment
// window and releases its tickets. Returns how many orders were expired.
func (s *OrderExpirationService) SweepExpired() int {
	cutoff := time.Now().Add(-s.config.PaymentWindow)

	stale, err := s.orderRepo.GetStalePending(cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query stale pending orders")
		return 0
	}

	expired := 0
	for _, order := range stale {
		// conditional transition so a settlement racing the sweep wins
		transitioned, err := s.orderRepo.MarkCanceledIfPending(order.ID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to expire order")
			continue
		}
		if !transitioned {
			continue
		}

		if err := s.ticketRepo.Release(order.TicketIDs); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to release tickets for expired order")
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"tickets":  len(order.TicketIDs),
			"age":      time.Since(order.OrderDate).Round(time.Second),
		}).Info("Expired pending order")
		expired++
	}

	return expired
}

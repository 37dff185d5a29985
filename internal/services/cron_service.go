package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/config"
	"github.com/cuikww/Obis-project/internal/database"
)

// CronService manages scheduled maintenance jobs
type CronService struct {
	cron       *cron.Cron
	ticketRepo *database.TicketRepository
	orderRepo  *database.OrderRepository
	config     config.ReservationConfig
	logger     *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	ticketRepo *database.TicketRepository,
	orderRepo *database.OrderRepository,
	cfg config.ReservationConfig,
	logger *logrus.Logger,
) *CronService {
	return &CronService{
		cron:       cron.New(),
		ticketRepo: ticketRepo,
		orderRepo:  orderRepo,
		config:     cfg,
		logger:     logger,
	}
}

// Start schedules and launches all jobs
func (s *CronService) Start() error {
	// Purge long-departed unsold tickets daily at 2 AM
	if _, err := s.cron.AddFunc("0 2 * * *", s.purgeDepartedTicketsJob); err != nil {
		return fmt.Errorf("failed to schedule ticket purge job: %w", err)
	}

	// Purge old canceled orders weekly on Sunday at 3 AM
	if _, err := s.cron.AddFunc("0 3 * * 0", s.purgeCanceledOrdersJob); err != nil {
		return fmt.Errorf("failed to schedule order purge job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) purgeDepartedTicketsJob() {
	start := time.Now()

	purged, err := s.ticketRepo.PurgeDeparted(s.config.RetentionDays)
	if err != nil {
		s.logger.WithError(err).Error("Ticket purge job failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"purged":   purged,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Purged departed unsold tickets")
}

func (s *CronService) purgeCanceledOrdersJob() {
	start := time.Now()

	purged, err := s.orderRepo.PurgeCanceled(s.config.RetentionDays)
	if err != nil {
		s.logger.WithError(err).Error("Order purge job failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"purged":   purged,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Purged old canceled orders")
}

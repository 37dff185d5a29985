package services

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/models"
)

// BatchService generates and manages ticket batches. A batch is one
// scheduled departure of one bus: one ticket per seat, all sharing a
// generated batch id.
type BatchService struct {
	ticketRepo   *database.TicketRepository
	seatRepo     *database.SeatRepository
	busRepo      *database.BusRepository
	terminalRepo *database.TerminalRepository
	logger       *logrus.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(
	ticketRepo *database.TicketRepository,
	seatRepo *database.SeatRepository,
	busRepo *database.BusRepository,
	terminalRepo *database.TerminalRepository,
	logger *logrus.Logger,
) *BatchService {
	return &BatchService{
		ticketRepo:   ticketRepo,
		seatRepo:     seatRepo,
		busRepo:      busRepo,
		terminalRepo: terminalRepo,
		logger:       logger,
	}
}

// GenerateBatchID builds a human-scannable batch identifier from the bus
// name, the terminal ids, and the creation instant. The time and random
// components keep ids unique across batches on the same route.
func GenerateBatchID(busName, originTerminalID, destTerminalID string, at time.Time) string {
	busPart := sanitizeIDPart(busName)
	if len(busPart) > 3 {
		busPart = busPart[:3]
	}

	millis := fmt.Sprintf("%d", at.UnixMilli())
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}

	return fmt.Sprintf("%s-%s-%s-%s-%03d",
		busPart,
		tailIDPart(originTerminalID, 4),
		tailIDPart(destTerminalID, 4),
		millis,
		rand.Intn(1000),
	)
}

func sanitizeIDPart(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "BUS"
	}
	return b.String()
}

func tailIDPart(s string, n int) string {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return strings.ToUpper(s)
}

// CreateBatch generates one ticket per seat of the bus for a scheduled
// departure. operatorID must own the bus; super admins pass an empty id.
func (s *BatchService) CreateBatch(operatorID string, req *models.CreateBatchRequest) (string, []models.Ticket, error) {
	departure, err := req.Validate()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	bus, err := s.busRepo.GetByID(req.BusID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, fmt.Errorf("%w: bus not found", ErrNotFound)
		}
		return "", nil, fmt.Errorf("failed to load bus: %w", err)
	}

	if operatorID != "" && bus.OperatorID != operatorID {
		return "", nil, fmt.Errorf("%w: bus belongs to another operator", ErrForbidden)
	}

	for _, terminalID := range []string{req.OriginTerminalID, req.DestinationTerminalID} {
		if _, err := s.terminalRepo.GetByID(terminalID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", nil, fmt.Errorf("%w: terminal %s not found", ErrNotFound, terminalID)
			}
			return "", nil, fmt.Errorf("failed to load terminal: %w", err)
		}
	}

	seats, err := s.seatRepo.GetByBusID(req.BusID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load seats: %w", err)
	}
	if len(seats) == 0 {
		// First batch for this bus: lay out the seat plan from its capacity.
		seats, err = s.seatRepo.InitializeForBus(bus.ID, bus.Capacity)
		if err != nil {
			return "", nil, fmt.Errorf("failed to initialize seats: %w", err)
		}
		s.logger.WithFields(logrus.Fields{
			"bus_id": bus.ID,
			"seats":  len(seats),
		}).Info("Seats initialized for bus")
	}

	now := time.Now()
	batchID := GenerateBatchID(bus.Name, req.OriginTerminalID, req.DestinationTerminalID, now)

	tickets := make([]models.Ticket, 0, len(seats))
	for _, seat := range seats {
		tickets = append(tickets, models.Ticket{
			ID:                    uuid.New().String(),
			BatchID:               batchID,
			SeatID:                seat.ID,
			OriginTerminalID:      req.OriginTerminalID,
			DestinationTerminalID: req.DestinationTerminalID,
			DepartureTime:         departure,
			Price:                 req.Price,
			Status:                models.TicketStatusAvailable,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	}

	if err := s.ticketRepo.InsertBatch(tickets); err != nil {
		return "", nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"batch_id":  batchID,
		"bus_id":    bus.ID,
		"tickets":   len(tickets),
		"departure": departure,
	}).Info("Ticket batch created")

	return batchID, tickets, nil
}

// GetBatch returns the tickets of a batch after checking ownership
func (s *BatchService) GetBatch(operatorID, batchID string) ([]models.TicketWithSeat, error) {
	tickets, err := s.ticketRepo.GetByBatchID(batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: batch not found", ErrNotFound)
	}

	if err := s.checkBatchOwnership(operatorID, tickets); err != nil {
		return nil, err
	}

	return tickets, nil
}

// UpdateBatch applies a bulk edit to every ticket in a batch. Refused while
// any ticket in the batch sits on a pending or paid order.
func (s *BatchService) UpdateBatch(operatorID, batchID string, req *models.UpdateBatchRequest) (int, error) {
	departure, err := req.Validate()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	tickets, err := s.ticketRepo.GetByBatchID(batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to load batch: %w", err)
	}
	if len(tickets) == 0 {
		return 0, fmt.Errorf("%w: batch not found", ErrNotFound)
	}

	if err := s.checkBatchOwnership(operatorID, tickets); err != nil {
		return 0, err
	}

	if err := s.checkNoActiveOrders(tickets); err != nil {
		return 0, err
	}

	if req.OriginTerminalID != nil || req.DestinationTerminalID != nil {
		origin := tickets[0].OriginTerminalID
		dest := tickets[0].DestinationTerminalID
		if req.OriginTerminalID != nil {
			origin = *req.OriginTerminalID
		}
		if req.DestinationTerminalID != nil {
			dest = *req.DestinationTerminalID
		}
		if origin == dest {
			return 0, fmt.Errorf("%w: origin and destination terminals must differ", ErrValidation)
		}
	}

	updated, err := s.ticketRepo.UpdateBatch(batchID, departure, req.Price, req.OriginTerminalID, req.DestinationTerminalID, req.Status)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"batch_id": batchID,
		"updated":  updated,
	}).Info("Ticket batch updated")

	return updated, nil
}

// DeleteBatch removes every ticket in a batch. Refused while any ticket in
// the batch sits on a pending or paid order.
func (s *BatchService) DeleteBatch(operatorID, batchID string) (int, error) {
	tickets, err := s.ticketRepo.GetByBatchID(batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to load batch: %w", err)
	}
	if len(tickets) == 0 {
		return 0, fmt.Errorf("%w: batch not found", ErrNotFound)
	}

	if err := s.checkBatchOwnership(operatorID, tickets); err != nil {
		return 0, err
	}

	if err := s.checkNoActiveOrders(tickets); err != nil {
		return 0, err
	}

	deleted, err := s.ticketRepo.DeleteBatch(batchID)
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"batch_id": batchID,
		"deleted":  deleted,
	}).Info("Ticket batch deleted")

	return deleted, nil
}

// GetTicket returns one ticket with its seat and bus details after
// checking ownership
func (s *BatchService) GetTicket(operatorID, ticketID string) (*models.TicketWithSeat, error) {
	ticket, err := s.loadOwnedTicket(operatorID, ticketID)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket edits a single ticket. Refused while the ticket sits on a
// pending or paid order.
func (s *BatchService) UpdateTicket(operatorID, ticketID string, req *models.UpdateBatchRequest) error {
	departure, err := req.Validate()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	ticket, err := s.loadOwnedTicket(operatorID, ticketID)
	if err != nil {
		return err
	}

	if err := s.checkTicketNotOnActiveOrder(ticket.ID); err != nil {
		return err
	}

	if req.OriginTerminalID != nil || req.DestinationTerminalID != nil {
		origin := ticket.OriginTerminalID
		dest := ticket.DestinationTerminalID
		if req.OriginTerminalID != nil {
			origin = *req.OriginTerminalID
		}
		if req.DestinationTerminalID != nil {
			dest = *req.DestinationTerminalID
		}
		if origin == dest {
			return fmt.Errorf("%w: origin and destination terminals must differ", ErrValidation)
		}
	}

	if err := s.ticketRepo.UpdateTicket(ticketID, departure, req.Price, req.OriginTerminalID, req.DestinationTerminalID, req.Status); err != nil {
		return err
	}

	s.logger.WithField("ticket_id", ticketID).Info("Ticket updated")

	return nil
}

// DeleteTicket removes a single ticket. Refused while the ticket sits on a
// pending or paid order.
func (s *BatchService) DeleteTicket(operatorID, ticketID string) error {
	ticket, err := s.loadOwnedTicket(operatorID, ticketID)
	if err != nil {
		return err
	}

	if err := s.checkTicketNotOnActiveOrder(ticket.ID); err != nil {
		return err
	}

	if err := s.ticketRepo.DeleteTicket(ticketID); err != nil {
		return err
	}

	s.logger.WithField("ticket_id", ticketID).Info("Ticket deleted")

	return nil
}

func (s *BatchService) loadOwnedTicket(operatorID, ticketID string) (*models.TicketWithSeat, error) {
	ticket, err := s.ticketRepo.GetWithSeat(ticketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: ticket not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	if operatorID != "" {
		bus, err := s.busRepo.GetByID(ticket.BusID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bus: %w", err)
		}
		if bus.OperatorID != operatorID {
			return nil, fmt.Errorf("%w: ticket belongs to another operator", ErrForbidden)
		}
	}

	return ticket, nil
}

func (s *BatchService) checkTicketNotOnActiveOrder(ticketID string) error {
	count, err := s.ticketRepo.CountOnActiveOrders([]string{ticketID})
	if err != nil {
		return fmt.Errorf("failed to check active orders: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: ticket is on an active order", ErrConflict)
	}

	return nil
}

func (s *BatchService) checkBatchOwnership(operatorID string, tickets []models.TicketWithSeat) error {
	if operatorID == "" {
		return nil
	}

	bus, err := s.busRepo.GetByID(tickets[0].BusID)
	if err != nil {
		return fmt.Errorf("failed to load bus: %w", err)
	}
	if bus.OperatorID != operatorID {
		return fmt.Errorf("%w: batch belongs to another operator", ErrForbidden)
	}

	return nil
}

func (s *BatchService) checkNoActiveOrders(tickets []models.TicketWithSeat) error {
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}

	count, err := s.ticketRepo.CountOnActiveOrders(ids)
	if err != nil {
		return fmt.Errorf("failed to check active orders: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d tickets in this batch are on active orders", ErrConflict, count)
	}

	return nil
}

package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/database"
	"github.com/cuikww/Obis-project/internal/models"
)

// SearchService serves the customer-facing ticket search: batches between
// two cities, with per-batch availability counts and seat maps.
type SearchService struct {
	ticketRepo *database.TicketRepository
	logger     *logrus.Logger
}

// NewSearchService creates a new SearchService
func NewSearchService(ticketRepo *database.TicketRepository, logger *logrus.Logger) *SearchService {
	return &SearchService{
		ticketRepo: ticketRepo,
		logger:     logger,
	}
}

// SearchBatches groups matching tickets into batch summaries, ordered by
// departure time. Batches with zero available seats are still listed so the
// client can show them as sold out.
func (s *SearchService) SearchBatches(originCityID, destCityID string, day *time.Time) ([]models.BatchSummary, error) {
	if originCityID == "" || destCityID == "" {
		return nil, fmt.Errorf("%w: origin_city_id and destination_city_id are required", ErrValidation)
	}
	if originCityID == destCityID {
		return nil, fmt.Errorf("%w: origin and destination cities must differ", ErrValidation)
	}

	rows, err := s.ticketRepo.SearchAvailable(originCityID, destCityID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to search tickets: %w", err)
	}

	grouped := make(map[string]*models.BatchSummary)
	order := []string{}

	for _, row := range rows {
		summary, ok := grouped[row.BatchID]
		if !ok {
			summary = &models.BatchSummary{
				BatchID:        row.BatchID,
				BusName:        row.BusName,
				OriginTerminal: row.OriginName,
				OriginCity:     row.OriginCity,
				DestTerminal:   row.DestName,
				DestCity:       row.DestCityName,
				DepartureTime:  row.DepartureTime,
				Price:          row.Price,
			}
			grouped[row.BatchID] = summary
			order = append(order, row.BatchID)
		}

		summary.TotalSeats++
		if row.Status == models.TicketStatusAvailable {
			summary.AvailableTickets++
		}
	}

	summaries := make([]models.BatchSummary, 0, len(order))
	for _, batchID := range order {
		summaries = append(summaries, *grouped[batchID])
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DepartureTime.Before(summaries[j].DepartureTime)
	})

	return summaries, nil
}

// GetBatchDetail returns the seat map of one batch for seat selection
func (s *SearchService) GetBatchDetail(batchID string) (*models.BatchDetail, error) {
	tickets, err := s.ticketRepo.GetByBatchID(batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: batch not found", ErrNotFound)
	}

	detail := &models.BatchDetail{
		BatchSummary: models.BatchSummary{
			BatchID:       batchID,
			BusName:       tickets[0].BusName,
			DepartureTime: tickets[0].DepartureTime,
			Price:         tickets[0].Price,
			TotalSeats:    len(tickets),
		},
		Seats: make([]models.BatchSeat, 0, len(tickets)),
	}

	for _, t := range tickets {
		if t.Status == models.TicketStatusAvailable {
			detail.AvailableTickets++
		}
		detail.Seats = append(detail.Seats, models.BatchSeat{
			TicketID:   t.ID,
			SeatNumber: t.SeatNumber,
			Status:     t.Status,
		})
	}

	return detail, nil
}

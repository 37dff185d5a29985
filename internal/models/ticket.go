package models

import (
	"errors"
	"time"
)

// TicketStatus represents the sale status of a ticket
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusSold      TicketStatus = "sold"
)

// Ticket is the sellable unit: one seat on one scheduled trip. Tickets are
// created in bulk by the batch generator, one per seat, sharing a batch id.
type Ticket struct {
	ID                    string       `json:"id" db:"id"`
	BatchID               string       `json:"batch_id" db:"batch_id"`
	SeatID                string       `json:"seat_id" db:"seat_id"`
	OriginTerminalID      string       `json:"origin_terminal_id" db:"origin_terminal_id"`
	DestinationTerminalID string       `json:"destination_terminal_id" db:"destination_terminal_id"`
	DepartureTime         time.Time    `json:"departure_time" db:"departure_time"`
	Price                 float64      `json:"price" db:"price"`
	Status                TicketStatus `json:"status" db:"status"`
	CreatedAt             time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at" db:"updated_at"`
}

// TicketWithSeat includes seat and bus details for display
type TicketWithSeat struct {
	Ticket
	SeatNumber int    `json:"seat_number" db:"seat_number"`
	BusID      string `json:"bus_id" db:"bus_id"`
	BusName    string `json:"bus_name" db:"bus_name"`
}

// CreateBatchRequest represents the request to generate a ticket batch for
// a scheduled trip (one ticket per seat of the bus)
type CreateBatchRequest struct {
	BusID                 string  `json:"bus_id" binding:"required"`
	OriginTerminalID      string  `json:"origin_terminal_id" binding:"required"`
	DestinationTerminalID string  `json:"destination_terminal_id" binding:"required"`
	DepartureTime         string  `json:"departure_time" binding:"required"` // RFC 3339
	Price                 float64 `json:"price" binding:"required,gt=0"`
}

// Validate validates the CreateBatchRequest
func (req *CreateBatchRequest) Validate() (time.Time, error) {
	if req.Price <= 0 {
		return time.Time{}, errors.New("price must be greater than 0")
	}
	if req.OriginTerminalID == req.DestinationTerminalID {
		return time.Time{}, errors.New("origin and destination terminals must differ")
	}
	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		return time.Time{}, errors.New("invalid departure_time format, expected RFC 3339")
	}
	if departure.Before(time.Now()) {
		return time.Time{}, errors.New("departure_time must be in the future")
	}
	return departure, nil
}

// UpdateBatchRequest represents a bulk update of every ticket in a batch.
// Ticket status is never edited through this path while any ticket in the
// batch sits on a pending or paid order.
type UpdateBatchRequest struct {
	DepartureTime         *string  `json:"departure_time,omitempty"` // RFC 3339
	Price                 *float64 `json:"price,omitempty"`
	OriginTerminalID      *string  `json:"origin_terminal_id,omitempty"`
	DestinationTerminalID *string  `json:"destination_terminal_id,omitempty"`
	Status                *string  `json:"status,omitempty"`
}

// Validate validates the UpdateBatchRequest
func (req *UpdateBatchRequest) Validate() (*time.Time, error) {
	if req.Price != nil && *req.Price <= 0 {
		return nil, errors.New("price must be greater than 0")
	}
	if req.Status != nil {
		status := TicketStatus(*req.Status)
		if status != TicketStatusAvailable && status != TicketStatusSold {
			return nil, errors.New("invalid status: must be available or sold")
		}
	}
	if req.DepartureTime != nil {
		departure, err := time.Parse(time.RFC3339, *req.DepartureTime)
		if err != nil {
			return nil, errors.New("invalid departure_time format, expected RFC 3339")
		}
		return &departure, nil
	}
	return nil, nil
}

// BatchSummary is the customer-facing view of one batch in search results
type BatchSummary struct {
	BatchID          string    `json:"batch_id"`
	BusName          string    `json:"bus_name"`
	OriginTerminal   string    `json:"origin_terminal"`
	OriginCity       string    `json:"origin_city"`
	DestTerminal     string    `json:"destination_terminal"`
	DestCity         string    `json:"destination_city"`
	DepartureTime    time.Time `json:"departure_time"`
	Price            float64   `json:"price"`
	AvailableTickets int       `json:"available_tickets"`
	TotalSeats       int       `json:"total_seats"`
}

// BatchSeat is one selectable seat in the batch detail view
type BatchSeat struct {
	TicketID   string       `json:"ticket_id"`
	SeatNumber int          `json:"seat_number"`
	Status     TicketStatus `json:"status"`
}

// BatchDetail is the customer-facing seat map for one batch
type BatchDetail struct {
	BatchSummary
	Seats []BatchSeat `json:"seats"`
}

// SearchTicketRow is the raw row backing the customer search, joining
// tickets with seats, buses, terminals and cities
type SearchTicketRow struct {
	Ticket
	SeatNumber   int    `json:"seat_number" db:"seat_number"`
	BusName      string `json:"bus_name" db:"bus_name"`
	OriginName   string `json:"origin_terminal_name" db:"origin_terminal_name"`
	OriginCity   string `json:"origin_city_name" db:"origin_city_name"`
	DestName     string `json:"destination_terminal_name" db:"destination_terminal_name"`
	DestCityName string `json:"destination_city_name" db:"destination_city_name"`
}

package models

import "time"

// Seat represents a physical seat on a bus. Seat numbers are unique within
// a bus; re-initialization replaces the full set.
type Seat struct {
	ID         string    `json:"id" db:"id"`
	BusID      string    `json:"bus_id" db:"bus_id"`
	SeatNumber int       `json:"seat_number" db:"seat_number"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// AddSeatRequest represents the request to add a single seat to a bus
type AddSeatRequest struct {
	BusID      string `json:"bus_id" binding:"required"`
	SeatNumber int    `json:"seat_number" binding:"required,gt=0"`
}

// InitializeSeatsRequest represents the request to (re)create the full seat
// set for a bus according to its capacity
type InitializeSeatsRequest struct {
	BusID string `json:"bus_id" binding:"required"`
}

package models

import (
	"errors"
	"strings"
	"time"
)

// Terminal represents a bus terminal located in a city
type Terminal struct {
	ID        string    `json:"id" db:"id"`
	CityID    string    `json:"city_id" db:"city_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TerminalWithCity includes the city name for display
type TerminalWithCity struct {
	Terminal
	CityName string `json:"city_name" db:"city_name"`
}

// CreateTerminalRequest represents the request to create a new terminal
type CreateTerminalRequest struct {
	CityID string `json:"city_id" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// UpdateTerminalRequest represents the request to update a terminal
type UpdateTerminalRequest struct {
	CityID *string `json:"city_id,omitempty"`
	Name   *string `json:"name,omitempty"`
}

// Validate validates the CreateTerminalRequest
func (req *CreateTerminalRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name must not be empty")
	}
	return nil
}

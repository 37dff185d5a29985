package models

import (
	"errors"
	"strings"
	"time"
)

// City represents a city served by the network
type City struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateCityRequest represents the request to create a new city
type CreateCityRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateCityRequest represents the request to rename a city
type UpdateCityRequest struct {
	Name string `json:"name" binding:"required"`
}

// Validate validates the CreateCityRequest
func (req *CreateCityRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name must not be empty")
	}
	return nil
}

package models

import (
	"errors"
	"strings"
	"time"
)

// Bus represents a bus owned by an operator
type Bus struct {
	ID         string    `json:"id" db:"id"`
	OperatorID string    `json:"operator_id" db:"operator_id"`
	Name       string    `json:"name" db:"name"`
	Capacity   int       `json:"capacity" db:"capacity"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CreateBusRequest represents the request to register a new bus
type CreateBusRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

// UpdateBusRequest represents the request to update a bus
type UpdateBusRequest struct {
	Name     *string `json:"name,omitempty"`
	Capacity *int    `json:"capacity,omitempty"`
}

// Validate validates the CreateBusRequest
func (req *CreateBusRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name must not be empty")
	}
	if req.Capacity <= 0 {
		return errors.New("capacity must be greater than 0")
	}
	return nil
}

// Validate validates the UpdateBusRequest
func (req *UpdateBusRequest) Validate() error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return errors.New("name must not be empty")
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return errors.New("capacity must be greater than 0")
	}
	return nil
}

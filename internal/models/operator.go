package models

import (
	"errors"
	"strings"
	"time"
)

// Operator represents a bus operating company (PO)
type Operator struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateOperatorRequest represents the request to register a new operator
type CreateOperatorRequest struct {
	Name string `json:"name" binding:"required"`
}

// Validate validates the CreateOperatorRequest
func (req *CreateOperatorRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name must not be empty")
	}
	return nil
}

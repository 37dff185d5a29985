package models

import (
	"errors"
	"strings"
	"time"
)

// Role represents the access level of a user account
type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleOperator   Role = "admin-po"
	RoleCustomer   Role = "customer"
)

// User represents an account. Operator admins carry the operator they manage.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	OperatorID   *string   `json:"operator_id,omitempty" db:"operator_id"`
	LastLogin    time.Time `json:"last_login" db:"last_login"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RegisterRequest represents a signup request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Validate validates the RegisterRequest
func (req *RegisterRequest) Validate() error {
	if !strings.Contains(req.Email, "@") {
		return errors.New("invalid email address")
	}
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name must not be empty")
	}
	return nil
}

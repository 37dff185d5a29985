package database

import (
	"fmt"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/jmoiron/sqlx"
)

// UserRepository handles users database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create persists a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, operator_id, last_login, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.OperatorID,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail returns a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, operator_id, last_login, created_at, updated_at
		FROM users WHERE email = $1
	`

	var user models.User
	if err := r.db.Get(&user, query, email); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, operator_id, last_login, created_at, updated_at
		FROM users WHERE id = $1
	`

	var user models.User
	if err := r.db.Get(&user, query, id); err != nil {
		return nil, err
	}

	return &user, nil
}

// EmailExists reports whether any user already uses the email
func (r *UserRepository) EmailExists(email string) (bool, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM users WHERE email = $1`, email); err != nil {
		return false, err
	}

	return count > 0, nil
}

// UpdatePassword replaces a user's password hash
func (r *UserRepository) UpdatePassword(id, passwordHash string) error {
	result, err := r.db.Exec(`
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// UpdateLastLogin records a successful login
func (r *UserRepository) UpdateLastLogin(id string, at time.Time) error {
	_, err := r.db.Exec(`UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`, id, at, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

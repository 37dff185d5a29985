package database

import (
	"fmt"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/jmoiron/sqlx"
)

// OperatorRepository handles operators database operations
type OperatorRepository struct {
	db *sqlx.DB
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(db *sqlx.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// Create persists a new operator
func (r *OperatorRepository) Create(operator *models.Operator) error {
	query := `
		INSERT INTO operators (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(query, operator.ID, operator.Name, operator.CreatedAt, operator.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}

	return nil
}

// GetByID returns an operator by ID
func (r *OperatorRepository) GetByID(id string) (*models.Operator, error) {
	var operator models.Operator
	query := `SELECT id, name, created_at, updated_at FROM operators WHERE id = $1`
	if err := r.db.Get(&operator, query, id); err != nil {
		return nil, err
	}

	return &operator, nil
}

// GetAll returns every operator ordered by name
func (r *OperatorRepository) GetAll() ([]models.Operator, error) {
	var operators []models.Operator
	query := `SELECT id, name, created_at, updated_at FROM operators ORDER BY name`
	if err := r.db.Select(&operators, query); err != nil {
		return nil, err
	}

	return operators, nil
}

// Update renames an operator
func (r *OperatorRepository) Update(operator *models.Operator) error {
	result, err := r.db.Exec(`
		UPDATE operators SET name = $2, updated_at = $3 WHERE id = $1
	`, operator.ID, operator.Name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update operator: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("operator not found")
	}

	return nil
}

// Delete removes an operator
func (r *OperatorRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM operators WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete operator: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("operator not found")
	}

	return nil
}

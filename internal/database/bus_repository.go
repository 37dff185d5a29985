package database

import (
	"fmt"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/jmoiron/sqlx"
)

// BusRepository handles buses database operations
type BusRepository struct {
	db *sqlx.DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db *sqlx.DB) *BusRepository {
	return &BusRepository{db: db}
}

// Create persists a new bus
func (r *BusRepository) Create(bus *models.Bus) error {
	query := `
		INSERT INTO buses (id, operator_id, name, capacity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(query,
		bus.ID,
		bus.OperatorID,
		bus.Name,
		bus.Capacity,
		bus.CreatedAt,
		bus.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}

	return nil
}

// GetByID returns a bus by ID
func (r *BusRepository) GetByID(id string) (*models.Bus, error) {
	var bus models.Bus
	query := `SELECT id, operator_id, name, capacity, created_at, updated_at FROM buses WHERE id = $1`
	if err := r.db.Get(&bus, query, id); err != nil {
		return nil, err
	}

	return &bus, nil
}

// GetByOperatorID returns the buses of one operator
func (r *BusRepository) GetByOperatorID(operatorID string) ([]models.Bus, error) {
	query := `SELECT id, operator_id, name, capacity, created_at, updated_at FROM buses WHERE operator_id = $1 ORDER BY name`

	var buses []models.Bus
	if err := r.db.Select(&buses, query, operatorID); err != nil {
		return nil, err
	}

	return buses, nil
}

// Update rewrites a bus's mutable fields
func (r *BusRepository) Update(bus *models.Bus) error {
	result, err := r.db.Exec(`
		UPDATE buses SET name = $2, capacity = $3, updated_at = $4 WHERE id = $1
	`, bus.ID, bus.Name, bus.Capacity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update bus: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("bus not found")
	}

	return nil
}

// Delete removes a bus
func (r *BusRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM buses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bus: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("bus not found")
	}

	return nil
}

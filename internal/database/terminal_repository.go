package database

import (
	"fmt"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/jmoiron/sqlx"
)

// TerminalRepository handles terminals database operations
type TerminalRepository struct {
	db *sqlx.DB
}

// NewTerminalRepository creates a new TerminalRepository
func NewTerminalRepository(db *sqlx.DB) *TerminalRepository {
	return &TerminalRepository{db: db}
}

// Create persists a new terminal
func (r *TerminalRepository) Create(terminal *models.Terminal) error {
	query := `
		INSERT INTO terminals (id, name, city_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(query,
		terminal.ID,
		terminal.Name,
		terminal.CityID,
		terminal.CreatedAt,
		terminal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create terminal: %w", err)
	}

	return nil
}

// GetByID returns a terminal by ID
func (r *TerminalRepository) GetByID(id string) (*models.Terminal, error) {
	var terminal models.Terminal
	query := `SELECT id, name, city_id, created_at, updated_at FROM terminals WHERE id = $1`
	if err := r.db.Get(&terminal, query, id); err != nil {
		return nil, err
	}

	return &terminal, nil
}

// GetAll returns every terminal with its city name
func (r *TerminalRepository) GetAll() ([]models.TerminalWithCity, error) {
	query := `
		SELECT t.id, t.name, t.city_id, t.created_at, t.updated_at,
			   c.name AS city_name
		FROM terminals t
		JOIN cities c ON t.city_id = c.id
		ORDER BY c.name, t.name
	`

	var terminals []models.TerminalWithCity
	if err := r.db.Select(&terminals, query); err != nil {
		return nil, err
	}

	return terminals, nil
}

// GetByCityID returns the terminals of one city
func (r *TerminalRepository) GetByCityID(cityID string) ([]models.Terminal, error) {
	query := `SELECT id, name, city_id, created_at, updated_at FROM terminals WHERE city_id = $1 ORDER BY name`

	var terminals []models.Terminal
	if err := r.db.Select(&terminals, query, cityID); err != nil {
		return nil, err
	}

	return terminals, nil
}

// Update rewrites a terminal's mutable fields
func (r *TerminalRepository) Update(terminal *models.Terminal) error {
	result, err := r.db.Exec(`
		UPDATE terminals SET name = $2, city_id = $3, updated_at = $4 WHERE id = $1
	`, terminal.ID, terminal.Name, terminal.CityID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update terminal: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("terminal not found")
	}

	return nil
}

// Delete removes a terminal
func (r *TerminalRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM terminals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete terminal: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("terminal not found")
	}

	return nil
}

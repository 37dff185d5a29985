package database

import (
	"fmt"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/jmoiron/sqlx"
)

// CityRepository handles cities database operations
type CityRepository struct {
	db *sqlx.DB
}

// NewCityRepository creates a new CityRepository
func NewCityRepository(db *sqlx.DB) *CityRepository {
	return &CityRepository{db: db}
}

// Create persists a new city
func (r *CityRepository) Create(city *models.City) error {
	query := `
		INSERT INTO cities (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(query, city.ID, city.Name, city.CreatedAt, city.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create city: %w", err)
	}

	return nil
}

// GetByID returns a city by ID
func (r *CityRepository) GetByID(id string) (*models.City, error) {
	var city models.City
	query := `SELECT id, name, created_at, updated_at FROM cities WHERE id = $1`
	if err := r.db.Get(&city, query, id); err != nil {
		return nil, err
	}

	return &city, nil
}

// GetAll returns every city ordered by name
func (r *CityRepository) GetAll() ([]models.City, error) {
	var cities []models.City
	query := `SELECT id, name, created_at, updated_at FROM cities ORDER BY name`
	if err := r.db.Select(&cities, query); err != nil {
		return nil, err
	}

	return cities, nil
}

// Update rewrites a city's mutable fields
func (r *CityRepository) Update(city *models.City) error {
	result, err := r.db.Exec(`
		UPDATE cities SET name = $2, updated_at = $3 WHERE id = $1
	`, city.ID, city.Name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update city: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("city not found")
	}

	return nil
}

// Delete removes a city
func (r *CityRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM cities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete city: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("city not found")
	}

	return nil
}

package database

import (
	"fmt"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SeatRepository handles seats database operations
type SeatRepository struct {
	db *sqlx.DB
}

// NewSeatRepository creates a new SeatRepository
func NewSeatRepository(db *sqlx.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

// InitializeForBus replaces a bus's seat set with seats numbered 1..capacity.
// Runs in one transaction so a failure leaves the previous set intact.
func (r *SeatRepository) InitializeForBus(busID string, capacity int) ([]models.Seat, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM seats WHERE bus_id = $1`, busID); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to clear existing seats: %w", err)
	}

	now := time.Now()
	seats := make([]models.Seat, 0, capacity)

	query := `
		INSERT INTO seats (id, bus_id, seat_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for n := 1; n <= capacity; n++ {
		seat := models.Seat{
			ID:         uuid.New().String(),
			BusID:      busID,
			SeatNumber: n,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if _, err := tx.Exec(query, seat.ID, seat.BusID, seat.SeatNumber, seat.CreatedAt, seat.UpdatedAt); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert seat %d: %w", n, err)
		}

		seats = append(seats, seat)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seats: %w", err)
	}

	return seats, nil
}

// Add persists a single extra seat
func (r *SeatRepository) Add(seat *models.Seat) error {
	query := `
		INSERT INTO seats (id, bus_id, seat_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(query, seat.ID, seat.BusID, seat.SeatNumber, seat.CreatedAt, seat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add seat: %w", err)
	}

	return nil
}

// GetByID returns a seat by ID
func (r *SeatRepository) GetByID(id string) (*models.Seat, error) {
	var seat models.Seat
	query := `SELECT id, bus_id, seat_number, created_at, updated_at FROM seats WHERE id = $1`
	if err := r.db.Get(&seat, query, id); err != nil {
		return nil, err
	}

	return &seat, nil
}

// GetByBusID returns a bus's seats ordered by number
func (r *SeatRepository) GetByBusID(busID string) ([]models.Seat, error) {
	query := `SELECT id, bus_id, seat_number, created_at, updated_at FROM seats WHERE bus_id = $1 ORDER BY seat_number`

	var seats []models.Seat
	if err := r.db.Select(&seats, query, busID); err != nil {
		return nil, err
	}

	return seats, nil
}

// CountByBusID returns how many seats a bus has
func (r *SeatRepository) CountByBusID(busID string) (int, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM seats WHERE bus_id = $1`, busID); err != nil {
		return 0, err
	}

	return count, nil
}

// Delete removes a seat
func (r *SeatRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM seats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete seat: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("seat not found")
	}

	return nil
}

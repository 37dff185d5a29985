package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cuikww/Obis-project/internal/models"
	"github.com/jmoiron/sqlx"
)

// ErrTicketsUnavailable is returned by Reserve when at least one ticket in
// the requested set is not currently available. Nothing is reserved.
var ErrTicketsUnavailable = errors.New("some tickets are not available")

// TicketRepository handles tickets database operations
type TicketRepository struct {
	db *sqlx.DB
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, batch_id, seat_id, origin_terminal_id, destination_terminal_id, departure_time, price, status, created_at, updated_at`

// InsertBatch persists a full ticket batch in one transaction. A failure on
// any row leaves no tickets behind.
func (r *TicketRepository) InsertBatch(tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return fmt.Errorf("batch must contain at least one ticket")
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO tickets (
			id, batch_id, seat_id, origin_terminal_id, destination_terminal_id,
			departure_time, price, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, t := range tickets {
		_, err := tx.Exec(query,
			t.ID,
			t.BatchID,
			t.SeatID,
			t.OriginTerminalID,
			t.DestinationTerminalID,
			t.DepartureTime,
			t.Price,
			t.Status,
			t.CreatedAt,
			t.UpdatedAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert ticket for seat %s: %w", t.SeatID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ticket batch: %w", err)
	}

	return nil
}

// Reserve atomically flips the whole ticket set from available to sold.
// If any requested ticket is not available the transaction is rolled back
// and ErrTicketsUnavailable is returned: callers never observe a partial
// reservation, and under concurrent attempts for overlapping sets at most
// one attempt wins any given ticket.
func (r *TicketRepository) Reserve(ticketIDs []string) error {
	if len(ticketIDs) == 0 {
		return fmt.Errorf("no tickets to reserve")
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query, args, err := sqlx.In(`
		UPDATE tickets
		SET status = 'sold',
			updated_at = ?
		WHERE id IN (?) AND status = 'available'
	`, time.Now(), ticketIDs)
	if err != nil {
		tx.Rollback()
		return err
	}

	query = tx.Rebind(query)
	result, err := tx.Exec(query, args...)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to reserve tickets: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if int(rowsAffected) != len(ticketIDs) {
		tx.Rollback()
		return ErrTicketsUnavailable
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	return nil
}

// Release flips the given tickets back to available. Releasing an already
// available ticket is a no-op, not an error.
func (r *TicketRepository) Release(ticketIDs []string) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE tickets
		SET status = 'available',
			updated_at = ?
		WHERE id IN (?)
	`, time.Now(), ticketIDs)
	if err != nil {
		return err
	}

	query = r.db.Rebind(query)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to release tickets: %w", err)
	}

	return nil
}

// GetByID returns a single ticket by ID
func (r *TicketRepository) GetByID(id string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	var ticket models.Ticket
	if err := r.db.Get(&ticket, query, id); err != nil {
		return nil, err
	}

	return &ticket, nil
}

// GetByIDs returns multiple tickets by IDs
func (r *TicketRepository) GetByIDs(ids []string) ([]models.Ticket, error) {
	if len(ids) == 0 {
		return []models.Ticket{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+ticketColumns+` FROM tickets WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	query = r.db.Rebind(query)

	var tickets []models.Ticket
	if err := r.db.Select(&tickets, query, args...); err != nil {
		return nil, err
	}

	return tickets, nil
}

// GetByBatchID returns all tickets sharing a batch id, ordered by seat number
func (r *TicketRepository) GetByBatchID(batchID string) ([]models.TicketWithSeat, error) {
	query := `
		SELECT t.id, t.batch_id, t.seat_id, t.origin_terminal_id, t.destination_terminal_id,
			   t.departure_time, t.price, t.status, t.created_at, t.updated_at,
			   s.seat_number, s.bus_id, b.name AS bus_name
		FROM tickets t
		JOIN seats s ON t.seat_id = s.id
		JOIN buses b ON s.bus_id = b.id
		WHERE t.batch_id = $1
		ORDER BY s.seat_number
	`

	var tickets []models.TicketWithSeat
	if err := r.db.Select(&tickets, query, batchID); err != nil {
		return nil, err
	}

	return tickets, nil
}

// GetWithSeat returns one ticket joined with its seat and bus
func (r *TicketRepository) GetWithSeat(id string) (*models.TicketWithSeat, error) {
	query := `
		SELECT t.id, t.batch_id, t.seat_id, t.origin_terminal_id, t.destination_terminal_id,
			   t.departure_time, t.price, t.status, t.created_at, t.updated_at,
			   s.seat_number, s.bus_id, b.name AS bus_name
		FROM tickets t
		JOIN seats s ON t.seat_id = s.id
		JOIN buses b ON s.bus_id = b.id
		WHERE t.id = $1
	`

	var ticket models.TicketWithSeat
	if err := r.db.Get(&ticket, query, id); err != nil {
		return nil, err
	}

	return &ticket, nil
}

// GetBusIDsForTickets returns the distinct buses backing the given tickets
func (r *TicketRepository) GetBusIDsForTickets(ticketIDs []string) ([]string, error) {
	if len(ticketIDs) == 0 {
		return []string{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT DISTINCT s.bus_id
		FROM tickets t
		JOIN seats s ON t.seat_id = s.id
		WHERE t.id IN (?)
	`, ticketIDs)
	if err != nil {
		return nil, err
	}

	query = r.db.Rebind(query)

	var busIDs []string
	if err := r.db.Select(&busIDs, query, args...); err != nil {
		return nil, err
	}

	return busIDs, nil
}

// SearchAvailable returns every ticket on routes between the two cities,
// optionally restricted to a single departure day. Grouping into batches is
// done by the caller.
func (r *TicketRepository) SearchAvailable(originCityID, destCityID string, day *time.Time) ([]models.SearchTicketRow, error) {
	query := `
		SELECT t.id, t.batch_id, t.seat_id, t.origin_terminal_id, t.destination_terminal_id,
			   t.departure_time, t.price, t.status, t.created_at, t.updated_at,
			   s.seat_number, b.name AS bus_name,
			   ot.name AS origin_terminal_name, oc.name AS origin_city_name,
			   dt.name AS destination_terminal_name, dc.name AS destination_city_name
		FROM tickets t
		JOIN seats s ON t.seat_id = s.id
		JOIN buses b ON s.bus_id = b.id
		JOIN terminals ot ON t.origin_terminal_id = ot.id
		JOIN cities oc ON ot.city_id = oc.id
		JOIN terminals dt ON t.destination_terminal_id = dt.id
		JOIN cities dc ON dt.city_id = dc.id
		WHERE ot.city_id = $1 AND dt.city_id = $2
	`
	args := []interface{}{originCityID, destCityID}

	if day != nil {
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		end := start.Add(24 * time.Hour)
		query += ` AND t.departure_time >= $3 AND t.departure_time < $4`
		args = append(args, start, end)
	}

	query += ` ORDER BY t.departure_time, s.seat_number`

	var rows []models.SearchTicketRow
	if err := r.db.Select(&rows, query, args...); err != nil {
		return nil, err
	}

	return rows, nil
}

// CountOnActiveOrders returns how many of the given tickets are referenced
// by an order in pending or paid status
func (r *TicketRepository) CountOnActiveOrders(ticketIDs []string) (int, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		SELECT COUNT(DISTINCT t.ticket_id)
		FROM orders o, UNNEST(o.ticket_ids) AS t(ticket_id)
		WHERE o.status IN ('pending', 'paid') AND t.ticket_id IN (?)
	`, ticketIDs)
	if err != nil {
		return 0, err
	}

	query = r.db.Rebind(query)

	var count int
	if err := r.db.Get(&count, query, args...); err != nil {
		return 0, err
	}

	return count, nil
}

// UpdateBatch applies the given field updates to every ticket in a batch
func (r *TicketRepository) UpdateBatch(batchID string, departure *time.Time, price *float64, originTerminalID, destinationTerminalID, status *string) (int, error) {
	sets := []string{"updated_at = :updated_at"}
	params := map[string]interface{}{
		"batch_id":   batchID,
		"updated_at": time.Now(),
	}

	if departure != nil {
		sets = append(sets, "departure_time = :departure_time")
		params["departure_time"] = *departure
	}
	if price != nil {
		sets = append(sets, "price = :price")
		params["price"] = *price
	}
	if originTerminalID != nil {
		sets = append(sets, "origin_terminal_id = :origin_terminal_id")
		params["origin_terminal_id"] = *originTerminalID
	}
	if destinationTerminalID != nil {
		sets = append(sets, "destination_terminal_id = :destination_terminal_id")
		params["destination_terminal_id"] = *destinationTerminalID
	}
	if status != nil {
		sets = append(sets, "status = :status")
		params["status"] = *status
	}

	query := `UPDATE tickets SET ` + strings.Join(sets, ", ") + ` WHERE batch_id = :batch_id`

	result, err := r.db.NamedExec(query, params)
	if err != nil {
		return 0, fmt.Errorf("failed to update batch: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// UpdateTicket applies the given field updates to a single ticket
func (r *TicketRepository) UpdateTicket(id string, departure *time.Time, price *float64, originTerminalID, destinationTerminalID, status *string) error {
	sets := []string{"updated_at = :updated_at"}
	params := map[string]interface{}{
		"id":         id,
		"updated_at": time.Now(),
	}

	if departure != nil {
		sets = append(sets, "departure_time = :departure_time")
		params["departure_time"] = *departure
	}
	if price != nil {
		sets = append(sets, "price = :price")
		params["price"] = *price
	}
	if originTerminalID != nil {
		sets = append(sets, "origin_terminal_id = :origin_terminal_id")
		params["origin_terminal_id"] = *originTerminalID
	}
	if destinationTerminalID != nil {
		sets = append(sets, "destination_terminal_id = :destination_terminal_id")
		params["destination_terminal_id"] = *destinationTerminalID
	}
	if status != nil {
		sets = append(sets, "status = :status")
		params["status"] = *status
	}

	query := `UPDATE tickets SET ` + strings.Join(sets, ", ") + ` WHERE id = :id`

	_, err := r.db.NamedExec(query, params)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	return nil
}

// DeleteBatch removes every ticket in a batch
func (r *TicketRepository) DeleteBatch(batchID string) (int, error) {
	result, err := r.db.Exec(`DELETE FROM tickets WHERE batch_id = $1`, batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete batch: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// DeleteTicket removes a single ticket
func (r *TicketRepository) DeleteTicket(id string) error {
	result, err := r.db.Exec(`DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("ticket not found")
	}

	return nil
}

// PurgeDeparted removes still-available tickets whose departure passed more
// than retentionDays ago. Sold tickets stay for order history.
func (r *TicketRepository) PurgeDeparted(retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result, err := r.db.Exec(`
		DELETE FROM tickets
		WHERE status = 'available' AND departure_time < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge departed tickets: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

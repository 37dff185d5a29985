package database

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuikww/Obis-project/internal/models"
)

func setupTicketRepoTest(t *testing.T) (*TicketRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewTicketRepository(sqlxDB)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestReserve_AllAvailable(t *testing.T) {
	repo, mock, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	ids := []string{"t1", "t2", "t3"}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.Reserve(ids)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_PartialUnavailable(t *testing.T) {
	repo, mock, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	ids := []string{"t1", "t2", "t3"}

	// only two of three tickets were still available; the whole
	// reservation must be rolled back
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	err := repo.Reserve(ids)
	assert.ErrorIs(t, err, ErrTicketsUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_EmptySet(t *testing.T) {
	repo, _, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	err := repo.Reserve(nil)
	assert.Error(t, err)
}

func TestRelease_AlreadyAvailable(t *testing.T) {
	repo, mock, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	// releasing tickets that are already available affects zero rows and
	// is still a success
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Release([]string{"t1", "t2"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_EmptySetIsNoop(t *testing.T) {
	repo, mock, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	err := repo.Release(nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_RollsBackOnFailure(t *testing.T) {
	repo, mock, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	now := time.Now()
	tickets := []models.Ticket{
		{ID: "t1", BatchID: "b1", SeatID: "s1", DepartureTime: now, Price: 50, Status: models.TicketStatusAvailable, CreatedAt: now, UpdatedAt: now},
		{ID: "t2", BatchID: "b1", SeatID: "s2", DepartureTime: now, Price: 50, Status: models.TicketStatusAvailable, CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tickets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tickets").
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.InsertBatch(tickets)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertBatch_CommitsFullSet(t *testing.T) {
	repo, mock, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	now := time.Now()
	tickets := []models.Ticket{
		{ID: "t1", BatchID: "b1", SeatID: "s1", DepartureTime: now, Price: 50, Status: models.TicketStatusAvailable, CreatedAt: now, UpdatedAt: now},
		{ID: "t2", BatchID: "b1", SeatID: "s2", DepartureTime: now, Price: 50, Status: models.TicketStatusAvailable, CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tickets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InsertBatch(tickets)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDs_EmptySet(t *testing.T) {
	repo, mock, cleanup := setupTicketRepoTest(t)
	defer cleanup()

	tickets, err := repo.GetByIDs(nil)
	assert.NoError(t, err)
	assert.Empty(t, tickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

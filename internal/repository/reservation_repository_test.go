package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnp/smart-parking-api/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func beginTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *sql.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return tx
}

func TestConfirmTxFlipsPendingReservation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)

	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status=?, payment_method=?, payment_time=NOW()")).
		WithArgs(model.ReservationConfirmed, "bank_transfer", uint64(9), model.ReservationPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ConfirmTx(context.Background(), tx, 9, "bank_transfer"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmTxReplayFindsNoPendingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)

	// A replayed confirmation matches zero rows: the status guard in the
	// UPDATE is what makes the whole confirm path idempotent.
	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status=?, payment_method=?, payment_time=NOW()")).
		WithArgs(model.ReservationConfirmed, "bank_transfer", uint64(9), model.ReservationPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.Equal(t, ErrConflict, repo.ConfirmTx(context.Background(), tx, 9, "bank_transfer"))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTxInsertsPendingReservation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)
	reservedAt := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT reserved_at FROM reservations WHERE reservation_id=?")).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"reserved_at"}).AddRow(reservedAt))
	mock.ExpectCommit()

	res := model.Reservation{
		UserID: 1, SpotID: 2,
		ExpectedStart: reservedAt.Add(time.Hour),
		ExpectedEnd:   reservedAt.Add(3 * time.Hour),
		PaymentAmount: 16000,
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, &res))
	require.NoError(t, tx.Commit())

	assert.Equal(t, uint64(42), res.ID)
	assert.Equal(t, model.ReservationPending, res.Status)
	assert.Equal(t, reservedAt, res.ReservedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTxRefusesSecondActiveClaim(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepo(db)

	// The NOT EXISTS guards in the insert match zero rows when the user
	// already holds a pending/confirmed reservation or a live session,
	// so a concurrent double-create loses here even after passing the
	// handler's pre-checks.
	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	res := model.Reservation{
		UserID: 1, SpotID: 5,
		ExpectedStart: time.Now().Add(time.Hour),
		ExpectedEnd:   time.Now().Add(2 * time.Hour),
		PaymentAmount: 8000,
	}
	assert.Equal(t, ErrConflict, repo.CreateTx(context.Background(), tx, &res))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

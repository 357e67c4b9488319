package handler

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hungnp/smart-parking-api/internal/model"
	"github.com/hungnp/smart-parking-api/internal/repository"
)

func paymentHandlerWithMock(t *testing.T) (*PaymentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	h := NewPaymentHandler(db,
		repository.NewReservationRepo(db),
		repository.NewParkingSpotRepo(db),
		repository.NewParkingLotRepo(db),
		repository.NewParkingLogRepo(db),
		repository.NewBankAccountRepo(db),
		repository.NewPaymentLogRepo(db))
	return h, mock
}

func TestConfirmTxRunsFullTransition(t *testing.T) {
	h, mock := paymentHandlerWithMock(t)
	entry := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)

	// One transaction: reservation confirmed, session opened, spot
	// flipped reserved→occupied, audit row written.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status=?, payment_method=?, payment_time=NOW()")).
		WithArgs(model.ReservationConfirmed, "bank_transfer", uint64(9), model.ReservationPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO parking_logs")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT entry_time FROM parking_logs WHERE log_id=?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"entry_time"}).AddRow(entry))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE parking_spots SET is_occupied=1, is_reserved=0, reserved_by=NULL")).
		WithArgs(uint64(2), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_logs")).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	res := model.Reservation{ID: 9, UserID: 1, SpotID: 2, PaymentAmount: 24000}
	plog, err := h.confirmTx(context.Background(), res, "bank_transfer", "TX9", 24000)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), plog.ID)
	assert.Equal(t, model.LogStatusIn, plog.Status)
	assert.Equal(t, entry, plog.EntryTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmTxReplayRollsBackUntouched(t *testing.T) {
	h, mock := paymentHandlerWithMock(t)

	// The conditional UPDATE finds no pending row on a replay; nothing
	// after it runs and the transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status=?, payment_method=?, payment_time=NOW()")).
		WithArgs(model.ReservationConfirmed, "bank_transfer", uint64(9), model.ReservationPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	res := model.Reservation{ID: 9, UserID: 1, SpotID: 2, PaymentAmount: 24000}
	_, err := h.confirmTx(context.Background(), res, "bank_transfer", "TX9", 24000)
	assert.Equal(t, repository.ErrConflict, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

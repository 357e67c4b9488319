package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hungnp/smart-parking-api/internal/model"
)

// ReservationRepo provides CRUD operations for reservations. A
// reservation is a pending claim on a spot that payment confirmation
// turns into a live parking session. Status transitions out of
// 'pending' are single conditional UPDATEs so that a replayed webhook
// or a racing cancel can never process the same reservation twice.
// All timestamp fields are assumed to be stored in UTC.
type ReservationRepo struct{ DB *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationCols = `reservation_id,user_id,spot_id,reserved_at,expected_start,expected_end,
               status,payment_amount,payment_method,payment_time`

func scanReservation(scan func(dest ...interface{}) error) (model.Reservation, error) {
	var res model.Reservation
	var method sql.NullString
	var payTime sql.NullTime
	err := scan(&res.ID, &res.UserID, &res.SpotID, &res.ReservedAt, &res.ExpectedStart, &res.ExpectedEnd,
		&res.Status, &res.PaymentAmount, &method, &payTime)
	if err != nil {
		return res, err
	}
	res.PaymentMethod = method.String
	if payTime.Valid {
		t := payTime.Time
		res.PaymentTime = &t
	}
	return res, nil
}

// CreateTx inserts a pending reservation within an existing transaction
// and populates the generated ID and reserved_at on the record. The
// caller must commit or roll back. The insert itself re-checks the
// per-user invariants (no active reservation, no active session) via
// NOT EXISTS, so two concurrent creates from the same user on different
// spots cannot both land: the handler's friendlier pre-checks race, this
// guard does not. Zero affected rows means the user already holds an
// active claim; returns ErrConflict.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, spot_id, expected_start, expected_end, status, payment_amount)
         SELECT ?,?,?,?,?,?
         FROM DUAL
         WHERE NOT EXISTS (
             SELECT 1 FROM reservations WHERE user_id=? AND status IN (?,?)
         ) AND NOT EXISTS (
             SELECT 1 FROM parking_logs WHERE user_id=? AND status IN (?,?)
         )`,
		res.UserID, res.SpotID, res.ExpectedStart.UTC(), res.ExpectedEnd.UTC(),
		model.ReservationPending, res.PaymentAmount,
		res.UserID, model.ReservationPending, model.ReservationConfirmed,
		res.UserID, model.LogStatusIn, model.LogStatusConfirmed)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Status = model.ReservationPending
	return tx.QueryRowContext(ctx,
		"SELECT reserved_at FROM reservations WHERE reservation_id=?", res.ID).Scan(&res.ReservedAt)
}

// GetByID fetches a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE reservation_id=? LIMIT 1", id)
	return scanReservation(row.Scan)
}

// ActiveByUser returns the user's reservation in {pending, confirmed},
// if any. sql.ErrNoRows means the user is free to book.
func (r *ReservationRepo) ActiveByUser(ctx context.Context, userID uint64) (model.Reservation, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+reservationCols+` FROM reservations
         WHERE user_id=? AND status IN (?,?)
         ORDER BY reservation_id DESC LIMIT 1`,
		userID, model.ReservationPending, model.ReservationConfirmed)
	return scanReservation(row.Scan)
}

// HasConflict reports whether any pending or confirmed reservation on
// the spot overlaps [start, end). excludeID skips one reservation,
// for re-checks against the caller's own booking; pass 0 to check all.
func (r *ReservationRepo) HasConflict(ctx context.Context, spotID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations
         WHERE spot_id=? AND reservation_id<>? AND status IN (?,?)
           AND NOT (expected_end <= ? OR expected_start >= ?)`,
		spotID, excludeID, model.ReservationPending, model.ReservationConfirmed,
		start.UTC(), end.UTC()).Scan(&n)
	return n > 0, err
}

// ConfirmTx flips a pending reservation to confirmed, recording the
// payment method and time. Zero affected rows means the reservation was
// not pending anymore (already confirmed, cancelled, or missing) and
// returns ErrConflict so webhook replays stay no-ops.
func (r *ReservationRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64, method string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status=?, payment_method=?, payment_time=NOW()
         WHERE reservation_id=? AND status=?`,
		model.ReservationConfirmed, method, id, model.ReservationPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CancelTx flips a pending reservation to cancelled. ErrConflict when
// it was not pending.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status=? WHERE reservation_id=? AND status=?",
		model.ReservationCancelled, id, model.ReservationPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// DeleteTx removes a reservation row. Audit rows in payment_logs keep a
// confirmed reservation alive through their foreign key; that surfaces
// as ErrConflict.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE reservation_id=?", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus sets the status directly. Admin use only; the allowed
// value set is validated by the handler.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE reservations SET status=? WHERE reservation_id=?", status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// LatestPendingByUser returns the user's most recent pending
// reservation, optionally narrowed to a spot and lot (pass 0 to skip a
// filter). The payment webhook resolves its free-text reference through
// this lookup.
func (r *ReservationRepo) LatestPendingByUser(ctx context.Context, userID, spotID, lotID uint64) (model.Reservation, error) {
	q := "SELECT " + reservationCols + ` FROM reservations r
         WHERE r.user_id=? AND r.status=?`
	args := []interface{}{userID, model.ReservationPending}
	if spotID != 0 {
		q += " AND r.spot_id=?"
		args = append(args, spotID)
	}
	if lotID != 0 {
		q += " AND r.spot_id IN (SELECT spot_id FROM parking_spots WHERE lot_id=?)"
		args = append(args, lotID)
	}
	q += " ORDER BY r.reservation_id DESC LIMIT 1"
	row := r.DB.QueryRowContext(ctx, q, args...)
	return scanReservation(row.Scan)
}

// ReservationDetail is a reservation joined with its spot and lot for
// display in listings.
type ReservationDetail struct {
	model.Reservation
	SpotNumber string
	LotID      uint64
	LotName    string
}

const detailSelect = `SELECT r.reservation_id, r.user_id, r.spot_id, r.reserved_at,
               r.expected_start, r.expected_end, r.status, r.payment_amount,
               r.payment_method, r.payment_time,
               s.spot_number, l.lot_id, l.name
        FROM reservations r
        JOIN parking_spots s ON s.spot_id = r.spot_id
        JOIN parking_lots l ON l.lot_id = s.lot_id`

func scanDetails(rows *sql.Rows) ([]ReservationDetail, error) {
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		var method sql.NullString
		var payTime sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.SpotID, &d.ReservedAt,
			&d.ExpectedStart, &d.ExpectedEnd, &d.Status, &d.PaymentAmount,
			&method, &payTime,
			&d.SpotNumber, &d.LotID, &d.LotName); err != nil {
			return nil, err
		}
		d.PaymentMethod = method.String
		if payTime.Valid {
			t := payTime.Time
			d.PaymentTime = &t
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ListByUser returns the user's reservations with spot and lot details,
// newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		detailSelect+" WHERE r.user_id=? ORDER BY r.reservation_id DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanDetails(rows)
}

// ListAll returns every reservation with spot and lot details, newest
// first. Admin and manager listings.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]ReservationDetail, error) {
	rows, err := r.DB.QueryContext(ctx, detailSelect+" ORDER BY r.reservation_id DESC")
	if err != nil {
		return nil, err
	}
	return scanDetails(rows)
}

// GetDetail returns one reservation with spot and lot details.
func (r *ReservationRepo) GetDetail(ctx context.Context, id uint64) (*ReservationDetail, error) {
	rows, err := r.DB.QueryContext(ctx, detailSelect+" WHERE r.reservation_id=?", id)
	if err != nil {
		return nil, err
	}
	details, err := scanDetails(rows)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, sql.ErrNoRows
	}
	return &details[0], nil
}


package repository

import (
	"context"
	"database/sql"

	"github.com/hungnp/smart-parking-api/internal/model"
)

// ParkingLogRepo manages parking session records. A log is opened with
// status 'in' when a vehicle enters (or a reservation is confirmed) and
// closed with the exit fields in one conditional UPDATE, so a doubled
// exit request settles the session exactly once.
type ParkingLogRepo struct{ DB *sql.DB }

func NewParkingLogRepo(db *sql.DB) *ParkingLogRepo { return &ParkingLogRepo{DB: db} }

const logCols = "log_id,user_id,spot_id,entry_time,exit_time,total_minutes,fee,status,payment_status"

func scanLog(scan func(dest ...interface{}) error) (model.ParkingLog, error) {
	var l model.ParkingLog
	var exit sql.NullTime
	err := scan(&l.ID, &l.UserID, &l.SpotID, &l.EntryTime, &exit,
		&l.TotalMinutes, &l.Fee, &l.Status, &l.PaymentStatus)
	if err != nil {
		return l, err
	}
	if exit.Valid {
		t := exit.Time
		l.ExitTime = &t
	}
	return l, nil
}

// CreateEntryTx opens a session with status 'in' and entry_time NOW(),
// populating the generated ID and entry time on the record.
func (r *ParkingLogRepo) CreateEntryTx(ctx context.Context, tx *sql.Tx, log *model.ParkingLog) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO parking_logs (user_id, spot_id, entry_time, status, payment_status)
         VALUES (?,?,NOW(),?,?)`,
		log.UserID, log.SpotID, model.LogStatusIn, model.LogPaymentPending)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = uint64(id)
	log.Status = model.LogStatusIn
	log.PaymentStatus = model.LogPaymentPending
	return tx.QueryRowContext(ctx,
		"SELECT entry_time FROM parking_logs WHERE log_id=?", log.ID).Scan(&log.EntryTime)
}

// GetByID fetches a log by id.
func (r *ParkingLogRepo) GetByID(ctx context.Context, id uint64) (model.ParkingLog, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+logCols+" FROM parking_logs WHERE log_id=? LIMIT 1", id)
	return scanLog(row.Scan)
}

// ActiveByUser returns the user's open session ('in' or hardware
// 'confirmed'), if any. sql.ErrNoRows means the user is not parked.
func (r *ParkingLogRepo) ActiveByUser(ctx context.Context, userID uint64) (model.ParkingLog, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+logCols+` FROM parking_logs
         WHERE user_id=? AND status IN (?,?)
         ORDER BY log_id DESC LIMIT 1`,
		userID, model.LogStatusIn, model.LogStatusConfirmed)
	return scanLog(row.Scan)
}

// CloseTx settles an open session: exit time, duration, fee, status out
// and payment_status paid are written together, guarded on the session
// still being open. ErrConflict when it was already closed.
func (r *ParkingLogRepo) CloseTx(ctx context.Context, tx *sql.Tx, id uint64, totalMinutes int, fee int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE parking_logs SET exit_time=NOW(), total_minutes=?, fee=?, status=?, payment_status=?
         WHERE log_id=? AND status IN (?,?)`,
		totalMinutes, fee, model.LogStatusOut, model.LogPaymentPaid,
		id, model.LogStatusIn, model.LogStatusConfirmed)
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

// ConfirmInSlot marks an open session as hardware-verified once the
// proximity sensor has seen the vehicle. ErrConflict when the session
// is not in status 'in'.
func (r *ParkingLogRepo) ConfirmInSlot(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE parking_logs SET status=? WHERE log_id=? AND status=?",
		model.LogStatusConfirmed, id, model.LogStatusIn)
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

// Delete removes a log row. Used only to compensate a just-created
// entry when the gate hardware refuses to open.
func (r *ParkingLogRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM parking_logs WHERE log_id=?", id)
	return err
}

// LogDetail is a session joined with its spot and lot for history views.
type LogDetail struct {
	model.ParkingLog
	SpotNumber string
	LotID      uint64
	LotName    string
	UserName   string
}

const logDetailSelect = `SELECT p.log_id, p.user_id, p.spot_id, p.entry_time, p.exit_time,
               p.total_minutes, p.fee, p.status, p.payment_status,
               s.spot_number, l.lot_id, l.name, u.full_name
        FROM parking_logs p
        JOIN parking_spots s ON s.spot_id = p.spot_id
        JOIN parking_lots l ON l.lot_id = s.lot_id
        JOIN users u ON u.user_id = p.user_id`

func scanLogDetails(rows *sql.Rows) ([]LogDetail, error) {
	defer rows.Close()
	details := make([]LogDetail, 0)
	for rows.Next() {
		var d LogDetail
		var exit sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.SpotID, &d.EntryTime, &exit,
			&d.TotalMinutes, &d.Fee, &d.Status, &d.PaymentStatus,
			&d.SpotNumber, &d.LotID, &d.LotName, &d.UserName); err != nil {
			return nil, err
		}
		if exit.Valid {
			t := exit.Time
			d.ExitTime = &t
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// HistoryByUser returns the user's sessions with spot and lot details,
// newest first.
func (r *ParkingLogRepo) HistoryByUser(ctx context.Context, userID uint64) ([]LogDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		logDetailSelect+" WHERE p.user_id=? ORDER BY p.log_id DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanLogDetails(rows)
}

// ListAll returns every session with spot, lot and user details, newest
// first. Admin and manager listings.
func (r *ParkingLogRepo) ListAll(ctx context.Context) ([]LogDetail, error) {
	rows, err := r.DB.QueryContext(ctx, logDetailSelect+" ORDER BY p.log_id DESC")
	if err != nil {
		return nil, err
	}
	return scanLogDetails(rows)
}

// TotalsByUser aggregates a user's completed sessions: count, minutes
// and fees paid. Used by the parking-status view.
func (r *ParkingLogRepo) TotalsByUser(ctx context.Context, userID uint64) (sessions int, minutes int, fees int64, err error) {
	err = r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_minutes),0), COALESCE(SUM(fee),0)
         FROM parking_logs WHERE user_id=? AND status=?`,
		userID, model.LogStatusOut).Scan(&sessions, &minutes, &fees)
	return
}

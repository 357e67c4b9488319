package repository

import (
	"context"
	"database/sql"
	"time"
)

// PaymentLog is one row of the webhook audit trail. Every inbound
// payment notification is recorded here with its processing outcome,
// whether or not it confirmed a reservation.
type PaymentLog struct {
	ID            uint64
	TransactionID string
	ReservationID *uint64
	UserID        *uint64
	Amount        int64
	Description   string
	Outcome       string
	CreatedAt     time.Time
}

// Webhook processing outcomes recorded in payment_logs.outcome.
const (
	PaymentOutcomeConfirmed = "confirmed"
	PaymentOutcomeDuplicate = "duplicate"
	PaymentOutcomeNoMatch   = "no_match"
)

// PaymentLogRepo persists the payment audit trail.
type PaymentLogRepo struct{ DB *sql.DB }

func NewPaymentLogRepo(db *sql.DB) *PaymentLogRepo { return &PaymentLogRepo{DB: db} }

// CreateTx records a payment notification within the confirm transaction
// so the audit row and the confirmation commit together.
func (r *PaymentLogRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *PaymentLog) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payment_logs (transaction_id, reservation_id, user_id, amount, description, outcome)
         VALUES (?,?,?,?,?,?)`,
		p.TransactionID, p.ReservationID, p.UserID, p.Amount, p.Description, p.Outcome)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Create records a notification outside any transaction, used for
// rejected or unmatched payloads that mutate nothing else.
func (r *PaymentLogRepo) Create(ctx context.Context, p *PaymentLog) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO payment_logs (transaction_id, reservation_id, user_id, amount, description, outcome)
         VALUES (?,?,?,?,?,?)`,
		p.TransactionID, p.ReservationID, p.UserID, p.Amount, p.Description, p.Outcome)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// ListByReservation returns the audit rows attached to a reservation,
// oldest first.
func (r *PaymentLogRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]PaymentLog, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT payment_log_id, transaction_id, reservation_id, user_id, amount, description, outcome, created_at
         FROM payment_logs WHERE reservation_id=? ORDER BY payment_log_id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := make([]PaymentLog, 0)
	for rows.Next() {
		var p PaymentLog
		var resID, userID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.TransactionID, &resID, &userID,
			&p.Amount, &p.Description, &p.Outcome, &p.CreatedAt); err != nil {
			return nil, err
		}
		if resID.Valid {
			v := uint64(resID.Int64)
			p.ReservationID = &v
		}
		if userID.Valid {
			v := uint64(userID.Int64)
			p.UserID = &v
		}
		logs = append(logs, p)
	}
	return logs, rows.Err()
}

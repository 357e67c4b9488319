package model

import "time"

// ParkingLog statuses.  "in" is the single active state per user;
// "confirmed" is an optional hardware-verified sub-state set when the
// slot proximity sensor sees the vehicle; "out" is terminal.
const (
	LogStatusIn        = "in"
	LogStatusConfirmed = "confirmed"
	LogStatusOut       = "out"
)

// Payment statuses on a parking log.  Exit settles the session in full,
// so "paid" is written together with the exit fields.
const (
	LogPaymentPending = "pending"
	LogPaymentPaid    = "paid"
)

// ParkingLog records a vehicle's actual stay in a spot from entry to
// exit.  ExitTime, TotalMinutes, Fee, status=out and payment_status=paid
// are written atomically when the session closes.
type ParkingLog struct {
	ID            uint64     // parking_logs.log_id
	UserID        uint64     // parking_logs.user_id
	SpotID        uint64     // parking_logs.spot_id
	EntryTime     time.Time  // parking_logs.entry_time
	ExitTime      *time.Time // parking_logs.exit_time (nullable while active)
	TotalMinutes  int        // parking_logs.total_minutes
	Fee           int64      // parking_logs.fee (VND)
	Status        string     // parking_logs.status
	PaymentStatus string     // parking_logs.payment_status
}

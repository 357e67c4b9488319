// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when a payment turns a pending
// reservation into a live parking session. It carries enough information
// for downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	SpotID        uint64 `json:"spot_id"`
	SpotNumber    string `json:"spot_number"`
	LotID         uint64 `json:"lot_id"`
	LotName       string `json:"lot_name"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// SessionClosedEvent is published when a vehicle exits and the parking
// log is settled.
type SessionClosedEvent struct {
	LogID        uint64 `json:"log_id"`
	UserID       uint64 `json:"user_id"`
	SpotID       uint64 `json:"spot_id"`
	EntryTime    string `json:"entry_time"`
	ExitTime     string `json:"exit_time"`
	TotalMinutes int    `json:"total_minutes"`
	Fee          int64  `json:"fee"`
}

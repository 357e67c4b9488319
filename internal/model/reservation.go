package model

import "time"

// Reservation statuses.  pending → confirmed and pending → cancelled are
// the only user-driven transitions; confirmed and cancelled are terminal
// (a confirmed reservation continues its life as a ParkingLog).
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

// Reservation is a time-boxed claim on a spot made before arrival.  It is
// created pending with a server-computed deposit amount and becomes
// confirmed only through payment confirmation (webhook or the manual test
// path).  A user holds at most one reservation in {pending, confirmed}
// at any time.
type Reservation struct {
	ID            uint64     // reservations.reservation_id
	UserID        uint64     // reservations.user_id
	SpotID        uint64     // reservations.spot_id
	ReservedAt    time.Time  // reservations.reserved_at (creation time)
	ExpectedStart time.Time  // reservations.expected_start
	ExpectedEnd   time.Time  // reservations.expected_end
	Status        string     // reservations.status
	PaymentAmount int64      // reservations.payment_amount (VND, server-derived)
	PaymentMethod string     // reservations.payment_method ("" until paid)
	PaymentTime   *time.Time // reservations.payment_time (nullable)
}

package model

import "time"

// Spot types stored in parking_spots.spot_type.
const (
	SpotTypeStandard = "standard"
	SpotTypeVIP      = "vip"
	SpotTypeEV       = "ev"
)

// ParkingSpot is the unit of reservation and occupation.  The two flags
// are modeled independently in the schema but at most one claim
// (reservation XOR occupation) is authoritative at a time; every
// transition updates both flags plus ReservedBy in a single conditional
// UPDATE so the pair cannot drift.  UpdatedAt is bumped on every
// transition.
type ParkingSpot struct {
	ID         uint64    // parking_spots.spot_id
	LotID      uint64    // parking_spots.lot_id
	SpotNumber string    // parking_spots.spot_number (unique within the lot)
	SpotType   string    // parking_spots.spot_type
	IsOccupied bool      // parking_spots.is_occupied
	IsReserved bool      // parking_spots.is_reserved
	ReservedBy *uint64   // parking_spots.reserved_by (nullable user reference)
	CreatedAt  time.Time // parking_spots.created_at
	UpdatedAt  time.Time // parking_spots.updated_at
}

// Available reports whether the spot carries no claim at all.
func (s ParkingSpot) Available() bool { return !s.IsOccupied && !s.IsReserved }

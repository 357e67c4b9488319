package model

import "time"

// ParkingLot is static reference data for a lot of spots sharing an
// address and an hourly price.  Availability is never stored on the lot
// row; it is derived from the spot flags at query time
// (total − occupied − reserved).
type ParkingLot struct {
	ID           uint64    // parking_lots.lot_id
	Name         string    // parking_lots.name
	Address      string    // parking_lots.address
	Latitude     float64   // parking_lots.latitude
	Longitude    float64   // parking_lots.longitude
	TotalSpots   int       // parking_lots.total_spots
	PricePerHour int64     // parking_lots.price_per_hour (VND)
	ManagerID    uint64    // parking_lots.manager_id (owning manager user)
	CreatedAt    time.Time // parking_lots.created_at
	UpdatedAt    time.Time // parking_lots.updated_at
}

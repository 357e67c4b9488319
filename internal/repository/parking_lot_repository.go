package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hungnp/smart-parking-api/internal/model"
)

// ParkingLotRepo provides CRUD operations on parking lots. Availability
// counts are always derived from the live spot flags rather than stored
// on the lot row, so listings reflect the latest transitions without any
// counter maintenance.
type ParkingLotRepo struct{ DB *sql.DB }

func NewParkingLotRepo(db *sql.DB) *ParkingLotRepo { return &ParkingLotRepo{DB: db} }

// LotWithAvailability is a parking lot plus its derived availability
// count (spots with neither flag set).
type LotWithAvailability struct {
	model.ParkingLot
	AvailableSpots int
}

const lotSelect = `SELECT l.lot_id, l.name, l.address, l.latitude, l.longitude,
               l.total_spots, l.price_per_hour, l.manager_id, l.created_at, l.updated_at,
               COALESCE(SUM(CASE WHEN s.is_occupied=0 AND s.is_reserved=0 THEN 1 ELSE 0 END), 0)
        FROM parking_lots l
        LEFT JOIN parking_spots s ON s.lot_id = l.lot_id`

func scanLotRows(rows *sql.Rows) ([]LotWithAvailability, error) {
	defer rows.Close()
	lots := make([]LotWithAvailability, 0)
	for rows.Next() {
		var l LotWithAvailability
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Latitude, &l.Longitude,
			&l.TotalSpots, &l.PricePerHour, &l.ManagerID, &l.CreatedAt, &l.UpdatedAt,
			&l.AvailableSpots); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// List returns all lots with availability, newest first.
func (r *ParkingLotRepo) List(ctx context.Context) ([]LotWithAvailability, error) {
	rows, err := r.DB.QueryContext(ctx, lotSelect+` GROUP BY l.lot_id ORDER BY l.lot_id DESC`)
	if err != nil {
		return nil, err
	}
	return scanLotRows(rows)
}

// LotQuery narrows a lot listing. Zero values mean "no filter".
type LotQuery struct {
	Term         string // substring of name or address
	MaxPrice     int64  // hourly price ceiling
	MinAvailable int    // minimum free spots right now
}

// Search returns lots matching the query, newest first. A zero query
// behaves like List. The availability filter runs in HAVING because the
// count is derived per group, not stored.
func (r *ParkingLotRepo) Search(ctx context.Context, q LotQuery) ([]LotWithAvailability, error) {
	query := lotSelect
	args := make([]interface{}, 0, 3)
	if term := strings.TrimSpace(q.Term); term != "" {
		query += ` WHERE (l.name LIKE ? OR l.address LIKE ?)`
		like := "%" + term + "%"
		args = append(args, like, like)
	}
	if q.MaxPrice > 0 {
		if len(args) == 0 {
			query += ` WHERE l.price_per_hour <= ?`
		} else {
			query += ` AND l.price_per_hour <= ?`
		}
		args = append(args, q.MaxPrice)
	}
	query += ` GROUP BY l.lot_id`
	if q.MinAvailable > 0 {
		query += ` HAVING COALESCE(SUM(CASE WHEN s.is_occupied=0 AND s.is_reserved=0 THEN 1 ELSE 0 END), 0) >= ?`
		args = append(args, q.MinAvailable)
	}
	query += ` ORDER BY l.lot_id DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanLotRows(rows)
}

// LotWithDistance is a lot plus its great-circle distance from a query
// point, in kilometers.
type LotWithDistance struct {
	LotWithAvailability
	DistanceKM float64
}

// haversine in SQL; 6371 is the Earth radius in kilometers.
const distanceExpr = `(6371 * ACOS(LEAST(1.0,
	COS(RADIANS(?)) * COS(RADIANS(l.latitude)) * COS(RADIANS(l.longitude) - RADIANS(?)) +
	SIN(RADIANS(?)) * SIN(RADIANS(l.latitude)))))`

// Nearby returns lots within radiusKM of (lat, lon), nearest first.
func (r *ParkingLotRepo) Nearby(ctx context.Context, lat, lon, radiusKM float64) ([]LotWithDistance, error) {
	query := `SELECT l.lot_id, l.name, l.address, l.latitude, l.longitude,
	               l.total_spots, l.price_per_hour, l.manager_id, l.created_at, l.updated_at,
	               COALESCE(SUM(CASE WHEN s.is_occupied=0 AND s.is_reserved=0 THEN 1 ELSE 0 END), 0),
	               ` + distanceExpr + ` AS distance_km
	        FROM parking_lots l
	        LEFT JOIN parking_spots s ON s.lot_id = l.lot_id
	        GROUP BY l.lot_id
	        HAVING distance_km <= ?
	        ORDER BY distance_km ASC`
	rows, err := r.DB.QueryContext(ctx, query, lat, lon, lat, radiusKM)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lots := make([]LotWithDistance, 0)
	for rows.Next() {
		var l LotWithDistance
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Latitude, &l.Longitude,
			&l.TotalSpots, &l.PricePerHour, &l.ManagerID, &l.CreatedAt, &l.UpdatedAt,
			&l.AvailableSpots, &l.DistanceKM); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// GetByID returns a single lot with availability. sql.ErrNoRows when the
// lot does not exist.
func (r *ParkingLotRepo) GetByID(ctx context.Context, id uint64) (*LotWithAvailability, error) {
	var l LotWithAvailability
	err := r.DB.QueryRowContext(ctx, lotSelect+` WHERE l.lot_id = ? GROUP BY l.lot_id`, id).Scan(
		&l.ID, &l.Name, &l.Address, &l.Latitude, &l.Longitude,
		&l.TotalSpots, &l.PricePerHour, &l.ManagerID, &l.CreatedAt, &l.UpdatedAt,
		&l.AvailableSpots)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a lot and returns its ID.
func (r *ParkingLotRepo) Create(ctx context.Context, lot *model.ParkingLot) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO parking_lots (name, address, latitude, longitude, total_spots, price_per_hour, manager_id)
         VALUES (?,?,?,?,?,?,?)`,
		lot.Name, lot.Address, lot.Latitude, lot.Longitude, lot.TotalSpots, lot.PricePerHour, lot.ManagerID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	lot.ID = uint64(id)
	return lot.ID, nil
}

// Update overwrites the mutable lot fields. Managers may only touch
// their own lots; admins pass managerID 0 to skip the ownership check.
// Returns ErrForbidden when the lot belongs to someone else and
// sql.ErrNoRows when it does not exist.
func (r *ParkingLotRepo) Update(ctx context.Context, lot *model.ParkingLot, managerID uint64) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT manager_id FROM parking_lots WHERE lot_id=?", lot.ID).Scan(&owner)
	if err != nil {
		return err
	}
	if managerID != 0 && owner != managerID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE parking_lots SET name=?, address=?, latitude=?, longitude=?, total_spots=?, price_per_hour=?, updated_at=NOW()
         WHERE lot_id=?`,
		lot.Name, lot.Address, lot.Latitude, lot.Longitude, lot.TotalSpots, lot.PricePerHour, lot.ID)
	return err
}

// Delete removes a lot. Spots with reservation or log history keep the
// lot alive through foreign keys; that surfaces as ErrConflict.
func (r *ParkingLotRepo) Delete(ctx context.Context, id, managerID uint64) error {
	var owner uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT manager_id FROM parking_lots WHERE lot_id=?", id).Scan(&owner)
	if err != nil {
		return err
	}
	if managerID != 0 && owner != managerID {
		return ErrForbidden
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM parking_lots WHERE lot_id=?", id); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1451") {
			return ErrConflict
		}
		return err
	}
	return nil
}

// Counts returns (available, total) for a lot, used by the hardware
// status endpoint. Total comes from the live spot rows, not the
// configured total_spots, so a half-provisioned lot reports honestly.
func (r *ParkingLotRepo) Counts(ctx context.Context, id uint64) (int, int, error) {
	var available, total int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN is_occupied=0 AND is_reserved=0 THEN 1 ELSE 0 END),0), COUNT(*)
         FROM parking_spots WHERE lot_id=?`, id).Scan(&available, &total)
	return available, total, err
}

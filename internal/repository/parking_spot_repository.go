package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hungnp/smart-parking-api/internal/model"
)

// ErrSpotUnavailable is returned when a spot state transition finds the
// spot already claimed (or already free, for release transitions). Every
// transition is a single conditional UPDATE; zero affected rows means a
// concurrent request won the spot first. Handlers translate this into an
// HTTP 400 response.
var ErrSpotUnavailable = errors.New("spot is not available")

// ParkingSpotRepo manages parking spots and their occupancy flags. The
// flag transitions are the concurrency boundary of the whole system:
// each one executes as UPDATE ... WHERE the expected prior state still
// holds, so two racing requests can never both claim the same spot.
type ParkingSpotRepo struct{ DB *sql.DB }

func NewParkingSpotRepo(db *sql.DB) *ParkingSpotRepo { return &ParkingSpotRepo{DB: db} }

// SpotWithPrice is a spot joined with its lot's hourly price, used by
// reservation and exit flows that need the price alongside the flags.
type SpotWithPrice struct {
	model.ParkingSpot
	LotName      string
	PricePerHour int64
}

const spotCols = "spot_id,lot_id,spot_number,spot_type,is_occupied,is_reserved,reserved_by,created_at,updated_at"

func scanSpot(scan func(dest ...interface{}) error) (model.ParkingSpot, error) {
	var s model.ParkingSpot
	var reservedBy sql.NullInt64
	err := scan(&s.ID, &s.LotID, &s.SpotNumber, &s.SpotType, &s.IsOccupied, &s.IsReserved,
		&reservedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if reservedBy.Valid {
		uid := uint64(reservedBy.Int64)
		s.ReservedBy = &uid
	}
	return s, nil
}

// GetByID fetches a spot by id.
func (r *ParkingSpotRepo) GetByID(ctx context.Context, id uint64) (model.ParkingSpot, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+spotCols+" FROM parking_spots WHERE spot_id=? LIMIT 1", id)
	return scanSpot(row.Scan)
}

// GetWithPrice fetches a spot joined with its lot's name and hourly price.
func (r *ParkingSpotRepo) GetWithPrice(ctx context.Context, id uint64) (*SpotWithPrice, error) {
	var sp SpotWithPrice
	var reservedBy sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		`SELECT s.spot_id, s.lot_id, s.spot_number, s.spot_type, s.is_occupied, s.is_reserved,
                s.reserved_by, s.created_at, s.updated_at, l.name, l.price_per_hour
         FROM parking_spots s
         JOIN parking_lots l ON l.lot_id = s.lot_id
         WHERE s.spot_id = ?`, id).Scan(
		&sp.ID, &sp.LotID, &sp.SpotNumber, &sp.SpotType, &sp.IsOccupied, &sp.IsReserved,
		&reservedBy, &sp.CreatedAt, &sp.UpdatedAt, &sp.LotName, &sp.PricePerHour)
	if err != nil {
		return nil, err
	}
	if reservedBy.Valid {
		uid := uint64(reservedBy.Int64)
		sp.ReservedBy = &uid
	}
	return &sp, nil
}

// ListByLot returns all spots in a lot ordered by spot number.
func (r *ParkingSpotRepo) ListByLot(ctx context.Context, lotID uint64) ([]model.ParkingSpot, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+spotCols+" FROM parking_spots WHERE lot_id=? ORDER BY spot_number", lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spots := make([]model.ParkingSpot, 0)
	for rows.Next() {
		s, err := scanSpot(rows.Scan)
		if err != nil {
			return nil, err
		}
		spots = append(spots, s)
	}
	return spots, rows.Err()
}

// FirstAvailableInLotTx locks and returns the lowest-numbered free spot
// in a lot. Used by walk-in entry where the driver has no reservation.
// sql.ErrNoRows when the lot is full.
func (r *ParkingSpotRepo) FirstAvailableInLotTx(ctx context.Context, tx *sql.Tx, lotID uint64) (model.ParkingSpot, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+spotCols+` FROM parking_spots
         WHERE lot_id=? AND is_occupied=0 AND is_reserved=0
         ORDER BY spot_number LIMIT 1 FOR UPDATE`, lotID)
	return scanSpot(row.Scan)
}

// ReserveTx flips a free spot to reserved for the given user. Fails with
// ErrSpotUnavailable when the spot was claimed in between.
func (r *ParkingSpotRepo) ReserveTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) error {
	return guarded(tx.ExecContext(ctx,
		`UPDATE parking_spots SET is_reserved=1, reserved_by=?, updated_at=NOW()
         WHERE spot_id=? AND is_occupied=0 AND is_reserved=0`, userID, spotID))
}

// OccupyFreeTx flips a free spot to occupied (walk-in entry).
func (r *ParkingSpotRepo) OccupyFreeTx(ctx context.Context, tx *sql.Tx, spotID uint64) error {
	return guarded(tx.ExecContext(ctx,
		`UPDATE parking_spots SET is_occupied=1, is_reserved=0, reserved_by=NULL, updated_at=NOW()
         WHERE spot_id=? AND is_occupied=0 AND is_reserved=0`, spotID))
}

// OccupyReservedTx converts a reservation hold into occupation when the
// reserving user arrives. The reserved_by guard stops anyone else from
// consuming the hold.
func (r *ParkingSpotRepo) OccupyReservedTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) error {
	return guarded(tx.ExecContext(ctx,
		`UPDATE parking_spots SET is_occupied=1, is_reserved=0, reserved_by=NULL, updated_at=NOW()
         WHERE spot_id=? AND is_occupied=0 AND is_reserved=1 AND reserved_by=?`, spotID, userID))
}

// ReleaseOccupiedTx frees an occupied spot on exit.
func (r *ParkingSpotRepo) ReleaseOccupiedTx(ctx context.Context, tx *sql.Tx, spotID uint64) error {
	return guarded(tx.ExecContext(ctx,
		`UPDATE parking_spots SET is_occupied=0, is_reserved=0, reserved_by=NULL, updated_at=NOW()
         WHERE spot_id=? AND is_occupied=1`, spotID))
}

// ReleaseReservedTx clears a reservation hold (cancellation or expiry).
func (r *ParkingSpotRepo) ReleaseReservedTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) error {
	return guarded(tx.ExecContext(ctx,
		`UPDATE parking_spots SET is_reserved=0, reserved_by=NULL, updated_at=NOW()
         WHERE spot_id=? AND is_reserved=1 AND reserved_by=?`, spotID, userID))
}

func guarded(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSpotUnavailable
	}
	return nil
}

// Create inserts a spot and returns its ID.
func (r *ParkingSpotRepo) Create(ctx context.Context, s *model.ParkingSpot) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO parking_spots (lot_id, spot_number, spot_type) VALUES (?,?,?)",
		s.LotID, s.SpotNumber, s.SpotType)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = uint64(id)
	return s.ID, nil
}

// Update changes the spot number or type. Occupancy flags are never
// writable through this path.
func (r *ParkingSpotRepo) Update(ctx context.Context, id uint64, spotNumber, spotType string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE parking_spots SET spot_number=?, spot_type=?, updated_at=NOW() WHERE spot_id=?",
		spotNumber, spotType, id)
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

// Delete removes a spot that carries no claim. Deleting a claimed spot
// would orphan an active session, so it is refused with ErrConflict.
func (r *ParkingSpotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM parking_spots WHERE spot_id=? AND is_occupied=0 AND is_reserved=0", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT 1 FROM parking_spots WHERE spot_id=?", id).Scan(&exists); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

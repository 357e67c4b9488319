package handler

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/gate"
	"github.com/hungnp/smart-parking-api/internal/model"
	"github.com/hungnp/smart-parking-api/internal/payment"
	"github.com/hungnp/smart-parking-api/internal/queue"
	"github.com/hungnp/smart-parking-api/internal/repository"
	queue_publisher "github.com/hungnp/smart-parking-api/internal/service"
)

// LicensePlateHandler drives the physical gate: the camera posts a
// recognized plate on entry and exit, the slot sensor posts proximity
// readings, and the controller polls lot occupancy for its display.
type LicensePlateHandler struct {
	DB           *sql.DB
	Users        *repository.UserRepo
	Spots        *repository.ParkingSpotRepo
	Lots         *repository.ParkingLotRepo
	Logs         *repository.ParkingLogRepo
	Gate         gate.Sender
	DefaultLotID uint64
}

func NewLicensePlateHandler(db *sql.DB, users *repository.UserRepo, spots *repository.ParkingSpotRepo,
	lots *repository.ParkingLotRepo, logs *repository.ParkingLogRepo,
	g gate.Sender, defaultLotID uint64) *LicensePlateHandler {
	if db == nil || users == nil || spots == nil || lots == nil || logs == nil {
		panic("nil dependency passed to NewLicensePlateHandler")
	}
	return &LicensePlateHandler{DB: db, Users: users, Spots: spots, Lots: lots,
		Logs: logs, Gate: g, DefaultLotID: defaultLotID}
}

type plateReq struct {
	LicensePlate string `json:"licensePlate"`
	LotID        uint64 `json:"lotId"`
}

// Entry handles a plate read at the entry gate. A driver with a live
// session (created when their reservation was confirmed) just gets the
// gate opened. A walk-in is assigned the first free spot in the lot:
// the session is committed first, then the gate is signalled, and a
// refusal from the hardware rolls the session back by deleting the log
// and freeing the spot so the driver can retry.
func (h *LicensePlateHandler) Entry(c echo.Context) error {
	var req plateReq
	if err := c.Bind(&req); err != nil || req.LicensePlate == "" {
		return fail(c, http.StatusBadRequest, "licensePlate required")
	}
	if req.LotID == 0 {
		req.LotID = h.DefaultLotID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	u, err := h.Users.GetByLicensePlate(ctx, req.LicensePlate)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "license plate is not registered")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	// Reserved drivers already hold a session from payment confirmation.
	if plog, err := h.Logs.ActiveByUser(ctx, u.ID); err == nil {
		if err := h.signal(ctx, gate.Signal{
			LicensePlate: u.LicensePlate, UserID: u.ID,
			Action: gate.ActionOpenEntry, SpotID: plog.SpotID, LogID: plog.ID,
		}); err != nil {
			return fail(c, http.StatusBadGateway, "gate did not open")
		}
		return respond(c, http.StatusOK, "welcome back", echo.Map{
			"logId": plog.ID, "spotId": plog.SpotID, "reserved": true,
		})
	} else if err != sql.ErrNoRows {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	// Walk-in: claim the first free spot in the lot.
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "begin tx failed")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	spot, err := h.Spots.FirstAvailableInLotTx(ctx, tx, req.LotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusBadRequest, "parking lot is full")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if err := h.Spots.OccupyFreeTx(ctx, tx, spot.ID); err != nil {
		if err == repository.ErrSpotUnavailable {
			return fail(c, http.StatusBadRequest, "spot was taken, try again")
		}
		return fail(c, http.StatusInternalServerError, "occupy failed")
	}
	plog := model.ParkingLog{UserID: u.ID, SpotID: spot.ID}
	if err := h.Logs.CreateEntryTx(ctx, tx, &plog); err != nil {
		return fail(c, http.StatusInternalServerError, "create log failed")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, http.StatusInternalServerError, "commit failed")
	}
	committed = true

	if err := h.signal(ctx, gate.Signal{
		LicensePlate: u.LicensePlate, UserID: u.ID,
		Action: gate.ActionOpenEntry, SpotID: spot.ID, LogID: plog.ID,
	}); err != nil {
		// Compensate: the vehicle never entered, so the session must not
		// exist and the spot must not stay claimed.
		h.compensateEntry(plog.ID, spot.ID)
		return fail(c, http.StatusBadGateway, "gate did not open")
	}

	return respond(c, http.StatusOK, "entry granted", echo.Map{
		"logId":      plog.ID,
		"spotId":     spot.ID,
		"spotNumber": spot.SpotNumber,
		"entryTime":  plog.EntryTime,
	})
}

func (h *LicensePlateHandler) compensateEntry(logID, spotID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Logs.Delete(ctx, logID); err != nil {
		log.Printf("compensate entry: delete log %d: %v", logID, err)
	}
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Spots.ReleaseOccupiedTx(ctx, tx, spotID); err != nil {
		return
	}
	if err := tx.Commit(); err == nil {
		committed = true
	}
}

// Exit handles a plate read at the exit gate. Duration and fee are
// computed here from the stored entry time and the lot price; nothing
// about the amount is taken from the request. The gate is opened first,
// then the session is settled, so a stuck barrier never leaves a paid
// session trapped inside.
func (h *LicensePlateHandler) Exit(c echo.Context) error {
	var req plateReq
	if err := c.Bind(&req); err != nil || req.LicensePlate == "" {
		return fail(c, http.StatusBadRequest, "licensePlate required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	u, err := h.Users.GetByLicensePlate(ctx, req.LicensePlate)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "license plate is not registered")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	plog, err := h.Logs.ActiveByUser(ctx, u.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusBadRequest, "no active parking session")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	sp, err := h.Spots.GetWithPrice(ctx, plog.SpotID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	minutes := payment.Minutes(plog.EntryTime, time.Now().UTC())
	fee := payment.Fee(minutes, sp.PricePerHour)

	if err := h.signal(ctx, gate.Signal{
		LicensePlate: u.LicensePlate, UserID: u.ID,
		Action: gate.ActionOpenExit, SpotID: plog.SpotID, LogID: plog.ID, Fee: fee,
	}); err != nil {
		return fail(c, http.StatusBadGateway, "gate did not open")
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "begin tx failed")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Logs.CloseTx(ctx, tx, plog.ID, minutes, fee); err != nil {
		if err == repository.ErrConflict {
			return fail(c, http.StatusBadRequest, "session already closed")
		}
		return fail(c, http.StatusInternalServerError, "close failed")
	}
	if err := h.Spots.ReleaseOccupiedTx(ctx, tx, plog.SpotID); err != nil && err != repository.ErrSpotUnavailable {
		return fail(c, http.StatusInternalServerError, "release failed")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, http.StatusInternalServerError, "commit failed")
	}
	committed = true

	exitAt := time.Now().UTC()
	go func() {
		pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pcancel()
		_ = queue_publisher.PublishSessionClosed(pctx, queue.SessionClosedEvent{
			LogID: plog.ID, UserID: u.ID, SpotID: plog.SpotID,
			EntryTime: plog.EntryTime.Format(time.RFC3339),
			ExitTime:  exitAt.Format(time.RFC3339),
			TotalMinutes: minutes, Fee: fee,
		})
	}()

	return respond(c, http.StatusOK, "exit granted", echo.Map{
		"logId":        plog.ID,
		"totalMinutes": minutes,
		"fee":          fee,
	})
}

type confirmSlotReq struct {
	LogID    uint64  `json:"logId"`
	SpotID   uint64  `json:"spotId"`
	Distance float64 `json:"distance"`
}

// ConfirmSlot takes a proximity reading from the slot sensor and marks
// the session hardware-verified when the reading falls inside the
// in-slot band. Out-of-band readings mutate nothing.
func (h *LicensePlateHandler) ConfirmSlot(c echo.Context) error {
	var req confirmSlotReq
	if err := c.Bind(&req); err != nil || req.LogID == 0 {
		return fail(c, http.StatusBadRequest, "logId and distance are required")
	}
	if !gate.InSlot(req.Distance) {
		return respond(c, http.StatusOK, "vehicle not yet in slot", echo.Map{
			"confirmed": false, "distance": req.Distance,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Logs.ConfirmInSlot(ctx, req.LogID); err != nil {
		if err == repository.ErrConflict {
			return respond(c, http.StatusOK, "slot already confirmed", echo.Map{"confirmed": true})
		}
		return fail(c, http.StatusInternalServerError, "confirm failed")
	}
	return respond(c, http.StatusOK, "vehicle confirmed in slot", echo.Map{"confirmed": true})
}

// SystemStatus reports available/total spot counts for the default lot,
// polled by the controller for its display.
func (h *LicensePlateHandler) SystemStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	available, total, err := h.Lots.Counts(ctx, h.DefaultLotID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	return respond(c, http.StatusOK, "system status", echo.Map{
		"lotId":     h.DefaultLotID,
		"available": available,
		"total":     total,
	})
}

// signal forwards to the gate controller, or no-ops when no controller
// is configured (development setups without the hardware).
func (h *LicensePlateHandler) signal(ctx context.Context, sig gate.Signal) error {
	if h.Gate == nil {
		return nil
	}
	return h.Gate.Send(ctx, sig)
}

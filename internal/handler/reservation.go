package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/model"
	"github.com/hungnp/smart-parking-api/internal/payment"
	"github.com/hungnp/smart-parking-api/internal/repository"
)

// ReservationHandler drives the booking lifecycle: create a pending
// reservation with its deposit, cancel it, and list or inspect bookings.
// Confirmation lives in PaymentHandler since it is always payment-driven.
type ReservationHandler struct {
	DB           *sql.DB
	Reservations *repository.ReservationRepo
	Spots        *repository.ParkingSpotRepo
	Lots         *repository.ParkingLotRepo
	Logs         *repository.ParkingLogRepo
	Banks        *repository.BankAccountRepo
}

func NewReservationHandler(db *sql.DB, res *repository.ReservationRepo, spots *repository.ParkingSpotRepo,
	lots *repository.ParkingLotRepo, logs *repository.ParkingLogRepo, banks *repository.BankAccountRepo) *ReservationHandler {
	if db == nil || res == nil || spots == nil || lots == nil || logs == nil || banks == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{DB: db, Reservations: res, Spots: spots, Lots: lots, Logs: logs, Banks: banks}
}

type createReservationReq struct {
	SpotID        uint64 `json:"spotId"`
	ExpectedStart string `json:"expectedStart"`
	ExpectedEnd   string `json:"expectedEnd"`
}

type reservationResp struct {
	ID            uint64     `json:"id"`
	SpotID        uint64     `json:"spotId"`
	SpotNumber    string     `json:"spotNumber,omitempty"`
	LotName       string     `json:"lotName,omitempty"`
	ReservedAt    time.Time  `json:"reservedAt"`
	ExpectedStart time.Time  `json:"expectedStart"`
	ExpectedEnd   time.Time  `json:"expectedEnd"`
	Status        string     `json:"status"`
	PaymentAmount int64      `json:"paymentAmount"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	PaymentTime   *time.Time `json:"paymentTime,omitempty"`
}

func toReservationResp(d repository.ReservationDetail) reservationResp {
	return reservationResp{
		ID: d.ID, SpotID: d.SpotID, SpotNumber: d.SpotNumber, LotName: d.LotName,
		ReservedAt: d.ReservedAt, ExpectedStart: d.ExpectedStart, ExpectedEnd: d.ExpectedEnd,
		Status: d.Status, PaymentAmount: d.PaymentAmount,
		PaymentMethod: d.PaymentMethod, PaymentTime: d.PaymentTime,
	}
}

// Create books a spot for a time window. Preconditions are checked in a
// fixed order so the user always gets the most actionable message:
// an active parking session blocks booking, then an existing booking,
// then spot availability, then time conflicts. The spot flip is the
// race arbiter: two concurrent bookings both pass the reads, but only
// one conditional UPDATE claims the spot.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil || req.SpotID == 0 {
		return fail(c, http.StatusBadRequest, "spotId, expectedStart and expectedEnd are required")
	}
	start, err1 := time.Parse(time.RFC3339, req.ExpectedStart)
	end, err2 := time.Parse(time.RFC3339, req.ExpectedEnd)
	if err1 != nil || err2 != nil {
		return fail(c, http.StatusBadRequest, "expectedStart and expectedEnd must be RFC3339 timestamps")
	}
	if !end.After(start) {
		return fail(c, http.StatusBadRequest, "expectedEnd must be after expectedStart")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// (a) one active session per user
	if _, err := h.Logs.ActiveByUser(ctx, uid); err == nil {
		return fail(c, http.StatusBadRequest, "you are already parking elsewhere")
	} else if err != sql.ErrNoRows {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	// (b) one active reservation per user
	if _, err := h.Reservations.ActiveByUser(ctx, uid); err == nil {
		return fail(c, http.StatusBadRequest, "you already have a pending reservation")
	} else if err != sql.ErrNoRows {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	// (c) spot exists and is free
	sp, err := h.Spots.GetWithPrice(ctx, req.SpotID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "parking spot not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if !sp.Available() {
		return fail(c, http.StatusBadRequest, "spot is not available")
	}
	// (d) no overlapping booking on the spot
	conflict, err := h.Reservations.HasConflict(ctx, req.SpotID, start, end, 0)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if conflict {
		return fail(c, http.StatusBadRequest, "time slot conflicts with an existing reservation")
	}

	amount := payment.Deposit(start, end, sp.PricePerHour)

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

	if err := h.Spots.ReserveTx(ctx, tx, req.SpotID, uid); err != nil {
		if err == repository.ErrSpotUnavailable {
			return fail(c, http.StatusBadRequest, "spot is not available")
		}
		return fail(c, http.StatusInternalServerError, "reserve failed")
	}
	res := model.Reservation{
		UserID: uid, SpotID: req.SpotID,
		ExpectedStart: start, ExpectedEnd: end,
		PaymentAmount: amount,
	}
	if err := h.Reservations.CreateTx(ctx, tx, &res); err != nil {
		if err == repository.ErrConflict {
			// Lost a race the pre-checks could not see: another request
			// from this user created a claim in the meantime.
			return fail(c, http.StatusConflict, "you already have an active reservation or parking session")
		}
		return fail(c, http.StatusInternalServerError, "create failed")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, http.StatusInternalServerError, "commit failed")
	}
	committed = true

	data := echo.Map{
		"reservation": reservationResp{
			ID: res.ID, SpotID: res.SpotID,
			ReservedAt: res.ReservedAt, ExpectedStart: start, ExpectedEnd: end,
			Status: res.Status, PaymentAmount: amount,
		},
	}
	// Attach the deposit QR when the lot's manager has an active bank
	// account; the booking succeeds either way.
	ref := payment.BuildReference(uid, sp.ID, sp.LotID)
	data["paymentReference"] = ref
	lot, err := h.Lots.GetByID(ctx, sp.LotID)
	if err == nil {
		if acct, err := h.Banks.ActiveForManager(ctx, lot.ManagerID); err == nil {
			data["qrCodeUrl"] = payment.QRCodeURL(acct.BankCode, acct.AccountNumber, acct.AccountName, amount, ref)
		}
	}
	return respond(c, http.StatusCreated, "reservation created", data)
}

// List returns the caller's reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]reservationResp, 0, len(details))
	for _, d := range details {
		out = append(out, toReservationResp(d))
	}
	return respond(c, http.StatusOK, "reservations", out)
}

// Get returns one reservation. Users see only their own; managers and
// admins see any.
func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid reservation id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Reservations.GetDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "reservation not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if d.UserID != uid && currentRole(c) == model.RoleUser {
		return fail(c, http.StatusForbidden, "not your reservation")
	}
	return respond(c, http.StatusOK, "reservation", toReservationResp(*d))
}

// Cancel aborts the caller's pending reservation and releases the spot
// hold in the same transaction.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid reservation id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "reservation not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if res.UserID != uid {
		return fail(c, http.StatusForbidden, "not your reservation")
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

	if err := h.Reservations.CancelTx(ctx, tx, id); err != nil {
		if err == repository.ErrConflict {
			return fail(c, http.StatusBadRequest, "reservation is not pending")
		}
		return fail(c, http.StatusInternalServerError, "cancel failed")
	}
	if err := h.Spots.ReleaseReservedTx(ctx, tx, res.SpotID, uid); err != nil && err != repository.ErrSpotUnavailable {
		return fail(c, http.StatusInternalServerError, "release failed")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, http.StatusInternalServerError, "commit failed")
	}
	committed = true
	return respond(c, http.StatusOK, "reservation cancelled", nil)
}

// ListAll returns every reservation. Manager and admin listings.
func (h *ReservationHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Reservations.ListAll(ctx)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]echo.Map, 0, len(details))
	for _, d := range details {
		out = append(out, echo.Map{"reservation": toReservationResp(d), "userId": d.UserID})
	}
	return respond(c, http.StatusOK, "reservations", out)
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus is the privileged direct status transition. Cancelling a
// pending reservation also releases its spot hold; any other transition
// touches only the reservation row.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid reservation id")
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	switch req.Status {
	case model.ReservationPending, model.ReservationConfirmed, model.ReservationCancelled:
	default:
		return fail(c, http.StatusBadRequest, "status must be pending, confirmed or cancelled")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "reservation not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	if req.Status == model.ReservationCancelled && res.Status == model.ReservationPending {
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
		if err := h.Reservations.CancelTx(ctx, tx, id); err != nil {
			return fail(c, http.StatusInternalServerError, "cancel failed")
		}
		if err := h.Spots.ReleaseReservedTx(ctx, tx, res.SpotID, res.UserID); err != nil && err != repository.ErrSpotUnavailable {
			return fail(c, http.StatusInternalServerError, "release failed")
		}
		if err := tx.Commit(); err != nil {
			return fail(c, http.StatusInternalServerError, "commit failed")
		}
		committed = true
		return respond(c, http.StatusOK, "reservation status updated", nil)
	}

	if err := h.Reservations.UpdateStatus(ctx, id, req.Status); err != nil {
		return fail(c, http.StatusInternalServerError, "update failed")
	}
	return respond(c, http.StatusOK, "reservation status updated", nil)
}

// AdminDelete removes a reservation outright. A pending reservation
// still holds its spot, so the claim is released in the same
// transaction.
func (h *ReservationHandler) AdminDelete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid reservation id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "reservation not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
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
	if res.Status == model.ReservationPending {
		if err := h.Spots.ReleaseReservedTx(ctx, tx, res.SpotID, res.UserID); err != nil && err != repository.ErrSpotUnavailable {
			return fail(c, http.StatusInternalServerError, "release failed")
		}
	}
	if err := h.Reservations.DeleteTx(ctx, tx, id); err != nil {
		if err == repository.ErrConflict {
			return fail(c, http.StatusConflict, "reservation has payment history")
		}
		return fail(c, http.StatusInternalServerError, "delete failed")
	}
	if err := tx.Commit(); err != nil {
		return fail(c, http.StatusInternalServerError, "commit failed")
	}
	committed = true
	return respond(c, http.StatusOK, "reservation deleted", nil)
}

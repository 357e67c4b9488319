package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hungnp/smart-parking-api/internal/model"
	"github.com/hungnp/smart-parking-api/internal/payment"
	"github.com/hungnp/smart-parking-api/internal/queue"
	"github.com/hungnp/smart-parking-api/internal/repository"
	queue_publisher "github.com/hungnp/smart-parking-api/internal/service"
)

// PaymentHandler owns the confirmation transaction that turns a pending
// reservation into a live parking session, plus the payment info and
// check endpoints. The webhook handler reuses confirmTx so both paths
// share one set of state transitions.
type PaymentHandler struct {
	DB           *sql.DB
	Reservations *repository.ReservationRepo
	Spots        *repository.ParkingSpotRepo
	Lots         *repository.ParkingLotRepo
	Logs         *repository.ParkingLogRepo
	Banks        *repository.BankAccountRepo
	PaymentLogs  *repository.PaymentLogRepo
}

func NewPaymentHandler(db *sql.DB, res *repository.ReservationRepo, spots *repository.ParkingSpotRepo,
	lots *repository.ParkingLotRepo, logs *repository.ParkingLogRepo,
	banks *repository.BankAccountRepo, plogs *repository.PaymentLogRepo) *PaymentHandler {
	if db == nil || res == nil || spots == nil || lots == nil || logs == nil || banks == nil || plogs == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{DB: db, Reservations: res, Spots: spots, Lots: lots,
		Logs: logs, Banks: banks, PaymentLogs: plogs}
}

// confirmTx performs the full confirmation as one transaction:
// reservation pending→confirmed, a new parking log with status 'in',
// the spot flipped reserved→occupied, and the payment audit row. The
// conditional reservation update makes the whole thing idempotent: a
// replay finds no pending row and the transaction rolls back untouched.
func (h *PaymentHandler) confirmTx(ctx context.Context, res model.Reservation, method, transactionID string, amount int64) (*model.ParkingLog, error) {
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Reservations.ConfirmTx(ctx, tx, res.ID, method); err != nil {
		return nil, err
	}
	plog := model.ParkingLog{UserID: res.UserID, SpotID: res.SpotID}
	if err := h.Logs.CreateEntryTx(ctx, tx, &plog); err != nil {
		return nil, err
	}
	if err := h.Spots.OccupyReservedTx(ctx, tx, res.SpotID, res.UserID); err != nil {
		return nil, err
	}
	audit := repository.PaymentLog{
		TransactionID: transactionID,
		ReservationID: &res.ID,
		UserID:        &res.UserID,
		Amount:        amount,
		Description:   method,
		Outcome:       repository.PaymentOutcomeConfirmed,
	}
	if err := h.PaymentLogs.CreateTx(ctx, tx, &audit); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	h.publishConfirmed(res, method)
	return &plog, nil
}

// publishConfirmed emits the broker event on a best-effort basis; a
// broker outage never fails the request.
func (h *PaymentHandler) publishConfirmed(res model.Reservation, method string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ev := queue.ReservationConfirmedEvent{
			ReservationID: res.ID,
			UserID:        res.UserID,
			SpotID:        res.SpotID,
			Amount:        res.PaymentAmount,
			PaymentMethod: method,
			ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if d, err := h.Reservations.GetDetail(ctx, res.ID); err == nil {
			ev.SpotNumber = d.SpotNumber
			ev.LotID = d.LotID
			ev.LotName = d.LotName
		}
		_ = queue_publisher.PublishReservationConfirmed(ctx, ev)
	}()
}

// Info returns everything a client needs to pay a deposit: the amount,
// the structured transfer reference and, when the lot's manager has an
// active bank account, the VietQR image URL.
func (h *PaymentHandler) Info(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "reservationId")
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

	ref := payment.BuildReference(d.UserID, d.SpotID, d.LotID)
	data := echo.Map{
		"reservationId": d.ID,
		"amount":        d.PaymentAmount,
		"status":        d.Status,
		"reference":     ref,
	}
	if lot, err := h.Lots.GetByID(ctx, d.LotID); err == nil {
		if acct, err := h.Banks.ActiveForManager(ctx, lot.ManagerID); err == nil {
			data["qrCodeUrl"] = payment.QRCodeURL(acct.BankCode, acct.AccountNumber, acct.AccountName, d.PaymentAmount, ref)
			data["bankName"] = acct.BankName
			data["accountNumber"] = acct.AccountNumber
			data["accountName"] = acct.AccountName
		}
	}
	return respond(c, http.StatusOK, "payment info", data)
}

type confirmPaymentReq struct {
	ReservationID uint64 `json:"reservationId"`
	PaymentMethod string `json:"paymentMethod"`
}

// Success is the manual confirmation path, used by the "simulate
// payment" UI action. The reservation must belong to the caller and
// still be pending.
func (h *PaymentHandler) Success(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req confirmPaymentReq
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
		return fail(c, http.StatusBadRequest, "reservationId required")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "manual"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, req.ReservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "reservation not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if res.UserID != uid {
		return fail(c, http.StatusForbidden, "not your reservation")
	}
	if res.Status != model.ReservationPending {
		return fail(c, http.StatusBadRequest, "reservation is not pending")
	}

	// Manual confirmations get a generated transaction id for the audit
	// trail, mirroring what a real bank transfer would carry.
	txnID := "MANUAL-" + uuid.NewString()
	plog, err := h.confirmTx(ctx, res, req.PaymentMethod, txnID, res.PaymentAmount)
	if err != nil {
		if err == repository.ErrConflict {
			return fail(c, http.StatusBadRequest, "reservation is not pending")
		}
		return fail(c, http.StatusInternalServerError, "confirm failed")
	}
	return respond(c, http.StatusOK, "payment confirmed", echo.Map{
		"reservationId": res.ID,
		"logId":         plog.ID,
		"entryTime":     plog.EntryTime,
	})
}

// Check reports whether a reservation has been paid, for clients polling
// while the user completes a bank transfer.
func (h *PaymentHandler) Check(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := pathID(c, "reservationId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid reservation id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "reservation not found")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if res.UserID != uid && currentRole(c) == model.RoleUser {
		return fail(c, http.StatusForbidden, "not your reservation")
	}
	return respond(c, http.StatusOK, "payment status", echo.Map{
		"reservationId": res.ID,
		"status":        res.Status,
		"paid":          res.Status == model.ReservationConfirmed,
		"paymentTime":   res.PaymentTime,
	})
}

// History lists the audit rows recorded for a reservation.
func (h *PaymentHandler) History(c echo.Context) error {
	id, err := pathID(c, "reservationId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid reservation id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	logs, err := h.PaymentLogs.ListByReservation(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	out := make([]echo.Map, 0, len(logs))
	for _, p := range logs {
		out = append(out, echo.Map{
			"transactionId": p.TransactionID,
			"amount":        p.Amount,
			"outcome":       p.Outcome,
			"createdAt":     p.CreatedAt,
		})
	}
	return respond(c, http.StatusOK, "payment history", out)
}
